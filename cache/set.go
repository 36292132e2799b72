package cache

const none = -1

// A line is one cache slot. Lines link into their set's recency list by
// way index.
type line struct {
	valid bool
	tag   uint64

	prev, next int
}

// A set holds a fixed array of lines and a doubly linked recency list over
// them, most recently used at head and least recently used at tail.
type set struct {
	lines []line
	head  int
	tail  int

	// Lines never return to invalid, so the invalid ones are always
	// lines[numValid:] and the next free line is lines[numValid].
	numValid int
}

func newSet(numWays int) set {
	s := set{
		lines: make([]line, numWays),
		head:  0,
		tail:  numWays - 1,
	}

	for i := range s.lines {
		s.lines[i].prev = i - 1
		s.lines[i].next = i + 1
	}
	s.lines[numWays-1].next = none

	return s
}

// lookup returns the way holding tag, or none.
func (s *set) lookup(tag uint64) int {
	for way := s.head; way != none; way = s.lines[way].next {
		l := &s.lines[way]
		if l.valid && l.tag == tag {
			return way
		}
	}

	return none
}

// freeWay returns an invalid way, or none if the set is full.
func (s *set) freeWay() int {
	if s.numValid == len(s.lines) {
		return none
	}

	return s.numValid
}

// fill validates the free way and stores tag in it.
func (s *set) fill(way int, tag uint64) {
	s.lines[way].valid = true
	s.lines[way].tag = tag
	s.numValid++
}

// visit moves way to the most recently used position.
func (s *set) visit(way int) {
	if way == s.head {
		return
	}

	l := &s.lines[way]

	s.lines[l.prev].next = l.next
	if l.next != none {
		s.lines[l.next].prev = l.prev
	} else {
		s.tail = l.prev
	}

	l.prev = none
	l.next = s.head
	s.lines[s.head].prev = way
	s.head = way
}

// residentTags lists the valid tags from most to least recently used.
func (s *set) residentTags() []uint64 {
	tags := make([]uint64, 0, s.numValid)
	for way := s.head; way != none; way = s.lines[way].next {
		if s.lines[way].valid {
			tags = append(tags, s.lines[way].tag)
		}
	}

	return tags
}
