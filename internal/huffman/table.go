package huffman

import (
	"container/heap"
	"math"
	"sort"
	"sync"
)

const (
	numSymbols = 256
	maxCodeLen = 24
)

// table is the static code shared by every encoder and decoder.
type table struct {
	codes   [numSymbols]uint32
	lengths [numSymbols]uint8
	minLen  int
	maxLen  int

	// canonical decoding: codes of length l are firstCode[l] ... firstCode[l]+count[l]-1
	// and map to sorted[offset[l]:]
	firstCode [maxCodeLen + 1]uint32
	count     [maxCodeLen + 1]uint32
	offset    [maxCodeLen + 1]uint32
	sorted    [numSymbols]uint8
}

var (
	tableOnce sync.Once
	static    *table
)

func staticTable() *table {
	tableOnce.Do(func() {
		static = buildTable(motionFrequencies())
	})
	return static
}

// motionFrequencies is the byte model for little-endian quantized wavelet
// coefficients. Most coefficients are small, so bytes close to 0x00 and 0xFF
// (small positive and negative values, and their sign-extended high bytes)
// dominate.
func motionFrequencies() [numSymbols]uint64 {
	var freqs [numSymbols]uint64
	for b := 0; b < numSymbols; b++ {
		dist := b
		if 256-b < dist {
			dist = 256 - b
		}
		freqs[b] = 64 + uint64(8192*math.Exp(-float64(dist)/8))
	}
	// exact zeros are the most common coefficient
	freqs[0] *= 4
	return freqs
}

type node struct {
	symbol      int
	count       uint64
	left, right *node
}

type nodeHeap []*node

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].count != h[j].count {
		return h[i].count < h[j].count
	}
	return h[i].symbol < h[j].symbol
}
func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x any)   { *h = append(*h, x.(*node)) }
func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

func buildTable(freqs [numSymbols]uint64) *table {
	lengths := codeLengths(freqs)
	for maxLength(lengths) > maxCodeLen {
		// flatten the model until the tree fits
		for i := range freqs {
			freqs[i] = freqs[i]/2 + 1
		}
		lengths = codeLengths(freqs)
	}

	t := &table{lengths: lengths, minLen: maxCodeLen}
	syms := make([]int, numSymbols)
	for i := range syms {
		syms[i] = i
	}
	sort.Slice(syms, func(a, b int) bool {
		la, lb := lengths[syms[a]], lengths[syms[b]]
		if la != lb {
			return la < lb
		}
		return syms[a] < syms[b]
	})

	var code uint32
	prevLen := uint8(0)
	for i, s := range syms {
		l := lengths[s]
		if i > 0 {
			code++
		}
		code <<= l - prevLen
		prevLen = l

		t.codes[s] = code
		t.sorted[i] = uint8(s)
		if t.count[l] == 0 {
			t.firstCode[l] = code
			t.offset[l] = uint32(i)
		}
		t.count[l]++
		t.minLen = min(t.minLen, int(l))
		t.maxLen = max(t.maxLen, int(l))
	}
	return t
}

func codeLengths(freqs [numSymbols]uint64) [numSymbols]uint8 {
	h := make(nodeHeap, 0, numSymbols)
	for s, c := range freqs {
		h = append(h, &node{symbol: s, count: c})
	}
	heap.Init(&h)
	next := numSymbols
	for h.Len() > 1 {
		a := heap.Pop(&h).(*node)
		b := heap.Pop(&h).(*node)
		heap.Push(&h, &node{symbol: next, count: a.count + b.count, left: a, right: b})
		next++
	}

	var lengths [numSymbols]uint8
	var walk func(n *node, depth uint8)
	walk = func(n *node, depth uint8) {
		if n.left == nil {
			lengths[n.symbol] = depth
			return
		}
		walk(n.left, depth+1)
		walk(n.right, depth+1)
	}
	walk(h[0], 0)
	return lengths
}

func maxLength(lengths [numSymbols]uint8) int {
	m := 0
	for _, l := range lengths {
		m = max(m, int(l))
	}
	return m
}
