package bmd

// Model is the skeleton and action part of a BMD file. Mesh geometry is
// skipped; only the texture references are kept.
type Model struct {
	Name     string
	Textures []string
	Bones    []Bone
	Actions  []Action
}

// Action is one animation clip. With LockPositions the root translation of
// every key is stored in RootPositions.
type Action struct {
	NumKeys       int
	LockPositions bool
	RootPositions [][3]float32
}

// Bone holds the hierarchy entry and per-action keys of one bone.
type Bone struct {
	Name         string
	Parent       int
	IsDummy      bool
	BindPosition [3]float64
	BindRotation [3]float64 // Euler XYZ radians

	// Keys[action] holds NumKeys positions and rotations.
	Keys []BoneKeys
}

// BoneKeys are the samples of one bone in one action.
type BoneKeys struct {
	Positions [][3]float32
	Rotations [][3]float32 // Euler XYZ radians
}
