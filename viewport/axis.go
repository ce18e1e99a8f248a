package viewport

import "sort"

// axis caches item offsets along one dimension. Offsets are filled lazily
// up to the furthest item looked at and truncated by reset.
type axis struct {
	count   int
	size    func(int) int
	offsets []int // offsets[i] is the start of item i
	sizes   []int
}

func (a *axis) itemSize(i int) int {
	if a.size == nil {
		return 1
	}
	return max(0, a.size(i))
}

// measure extends the cache so it covers item i.
func (a *axis) measure(i int) {
	for n := len(a.offsets); n <= i && n < a.count; n++ {
		off := 0
		if n > 0 {
			off = a.offsets[n-1] + a.sizes[n-1]
		}
		a.offsets = append(a.offsets, off)
		a.sizes = append(a.sizes, a.itemSize(n))
	}
}

func (a *axis) offset(i int) int {
	if i <= 0 || a.count == 0 {
		return 0
	}
	if i >= a.count {
		return a.end(a.count - 1)
	}
	a.measure(i)
	return a.offsets[i]
}

func (a *axis) sizeOf(i int) int {
	if i < 0 || i >= a.count {
		return 0
	}
	a.measure(i)
	return a.sizes[i]
}

func (a *axis) end(i int) int {
	return a.offset(i) + a.sizeOf(i)
}

// reset drops cached offsets from index i on.
func (a *axis) reset(i int) {
	if i < 0 {
		return
	}
	if i < len(a.offsets) {
		a.offsets = a.offsets[:i]
		a.sizes = a.sizes[:i]
	}
}

func (a *axis) setCount(n int) {
	a.count = max(0, n)
	a.reset(a.count)
}

// total estimates the full extent: measured items are summed and the rest
// are assumed to be the average measured size.
func (a *axis) total() int {
	if a.count == 0 {
		return 0
	}
	n := len(a.offsets)
	if n == 0 {
		a.measure(0)
		n = 1
	}
	measured := a.offsets[n-1] + a.sizes[n-1]
	if n >= a.count {
		return measured
	}
	avg := max(1, measured/n)
	return measured + (a.count-n)*avg
}

// find returns the index of the item containing pos, clamped to the last
// item.
func (a *axis) find(pos int) int {
	if a.count == 0 || pos <= 0 {
		return 0
	}
	for len(a.offsets) < a.count {
		last := len(a.offsets) - 1
		if last >= 0 && a.offsets[last]+a.sizes[last] > pos {
			break
		}
		a.measure(len(a.offsets))
	}
	i := sort.Search(len(a.offsets), func(i int) bool {
		return a.offsets[i]+a.sizes[i] > pos
	})
	return min(i, a.count-1)
}
