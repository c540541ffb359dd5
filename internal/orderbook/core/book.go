package core

import (
	"container/heap"
	"sort"
)

// priceTicks is a tick-aligned price index used to key levels.
type priceTicks int64

// internal resting order node (never exposed)
type restingOrder struct {
	order Order
	seq   uint64

	level *level
	prev  *restingOrder
	next  *restingOrder
}

func (o *restingOrder) isFilled() bool { return o.order.Amount <= 0 }

func (o *restingOrder) snapshot() RestingOrder {
	return RestingOrder{
		ID:             o.order.ID,
		CounterpartyID: o.order.CounterpartyID,
		Side:           o.order.Side,
		Price:          o.order.Price,
		Amount:         o.order.Amount,
		Timestamp:      o.order.Timestamp,
		Seq:            o.seq,
	}
}

// level is a FIFO queue of resting orders at one price.
type level struct {
	ticks       priceTicks
	price       float64
	head, tail  *restingOrder
	totalAmount int64
	count       int
}

func (l *level) append(o *restingOrder) {
	o.level = l
	o.prev = l.tail
	o.next = nil
	if l.tail != nil {
		l.tail.next = o
	} else {
		l.head = o
	}
	l.tail = o
	l.totalAmount += o.order.Amount
	l.count++
}

func (l *level) popHead() *restingOrder {
	o := l.head
	if o == nil {
		return nil
	}
	n := o.next
	l.head = n
	if n != nil {
		n.prev = nil
	} else {
		l.tail = nil
	}
	o.prev, o.next, o.level = nil, nil, nil
	l.count--
	return o
}

func (l *level) empty() bool { return l.head == nil }

// heap of levels
type levelHeap struct {
	data  []*level
	index map[*level]int
	isBid bool
}

func newLevelHeap(isBid bool) *levelHeap {
	h := &levelHeap{
		data:  []*level{},
		index: map[*level]int{},
		isBid: isBid,
	}
	heap.Init(h)
	return h
}

func (h *levelHeap) Len() int { return len(h.data) }
func (h *levelHeap) Less(i, j int) bool {
	if h.isBid {
		return h.data[i].ticks > h.data[j].ticks // max-heap for bids
	}
	return h.data[i].ticks < h.data[j].ticks // min-heap for asks
}
func (h *levelHeap) Swap(i, j int) {
	h.data[i], h.data[j] = h.data[j], h.data[i]
	h.index[h.data[i]] = i
	h.index[h.data[j]] = j
}
func (h *levelHeap) Push(x any) {
	l := x.(*level)
	h.data = append(h.data, l)
	h.index[l] = len(h.data) - 1
}
func (h *levelHeap) Pop() any {
	n := len(h.data)
	if n == 0 {
		return nil
	}
	l := h.data[n-1]
	h.data = h.data[:n-1]
	delete(h.index, l)
	return l
}
func (h *levelHeap) best() *level {
	if len(h.data) == 0 {
		return nil
	}
	return h.data[0]
}
func (h *levelHeap) removeLevel(l *level) {
	i, ok := h.index[l]
	if !ok {
		return
	}
	heap.Remove(h, i)
}

// bookSide holds one side of the book (bids or asks).
type bookSide struct {
	isBid       bool
	levels      map[priceTicks]*level
	h           *levelHeap
	totalAmount int64
	orders      int
}

func newBookSide(isBid bool) *bookSide {
	return &bookSide{
		isBid:  isBid,
		levels: map[priceTicks]*level{},
		h:      newLevelHeap(isBid),
	}
}

func (bs *bookSide) bestLevel() *level { return bs.h.best() }

func (bs *bookSide) getOrCreate(ticks priceTicks, price float64) *level {
	if l, ok := bs.levels[ticks]; ok {
		return l
	}
	l := &level{ticks: ticks, price: price}
	bs.levels[ticks] = l
	heap.Push(bs.h, l)
	return l
}

func (bs *bookSide) removeLevel(l *level) {
	delete(bs.levels, l.ticks)
	bs.h.removeLevel(l)
}

func (bs *bookSide) add(ticks priceTicks, o *restingOrder) {
	l := bs.getOrCreate(ticks, o.order.Price)
	l.append(o)
	bs.totalAmount += o.order.Amount
	bs.orders++
}

// reduce takes amount off the head order of l, dropping the order (and the
// level) once it is filled. It returns true if the head order was removed.
func (bs *bookSide) reduce(l *level, amount int64) bool {
	maker := l.head
	maker.order.Amount -= amount
	l.totalAmount -= amount
	bs.totalAmount -= amount
	if !maker.isFilled() {
		return false
	}
	l.popHead()
	bs.orders--
	if l.empty() {
		bs.removeLevel(l)
	}
	return true
}

// hasAtLeast reports whether resting amount covers need. The side keeps a
// running total, so this is the short-circuited level walk in O(1).
func (bs *bookSide) hasAtLeast(need int64) bool {
	return bs.totalAmount >= need
}

// sortedLevels returns levels best price first.
func (bs *bookSide) sortedLevels() []*level {
	out := make([]*level, len(bs.h.data))
	copy(out, bs.h.data)
	sort.Slice(out, func(i, j int) bool {
		if bs.isBid {
			return out[i].ticks > out[j].ticks
		}
		return out[i].ticks < out[j].ticks
	})
	return out
}

// topLevels returns the best n levels, best price first, walking the heap
// in O(n log n). n <= 0 returns every level.
func (bs *bookSide) topLevels(n int) []*level {
	data := bs.h.data
	if n <= 0 || n >= len(data) {
		return bs.sortedLevels()
	}
	out := make([]*level, 0, n)
	f := &frontier{h: bs.h, idx: []int{0}}
	for len(out) < n && f.Len() > 0 {
		i := heap.Pop(f).(int)
		out = append(out, data[i])
		for _, c := range [2]int{2*i + 1, 2*i + 2} {
			if c < len(data) {
				heap.Push(f, c)
			}
		}
	}
	return out
}

// frontier orders indexes into a levelHeap by the heap's own priority.
type frontier struct {
	h   *levelHeap
	idx []int
}

func (f *frontier) Len() int           { return len(f.idx) }
func (f *frontier) Less(i, j int) bool { return f.h.Less(f.idx[i], f.idx[j]) }
func (f *frontier) Swap(i, j int)      { f.idx[i], f.idx[j] = f.idx[j], f.idx[i] }
func (f *frontier) Push(x any)         { f.idx = append(f.idx, x.(int)) }
func (f *frontier) Pop() any {
	n := len(f.idx)
	i := f.idx[n-1]
	f.idx = f.idx[:n-1]
	return i
}
