package core

// internal resting order node (never exposed)
type restingOrder struct {
	id       OrderID
	agentID  AgentID
	side     Side
	ticks    PriceTicks
	price    float64
	size     float64
	sequence uint64

	level *level
	prev  *restingOrder
	next  *restingOrder
}

// resting reports whether the node is still linked into a level.
func (o *restingOrder) resting() bool { return o.level != nil }

func (o *restingOrder) snapshot() RestingOrder {
	return RestingOrder{
		ID:        o.id,
		AgentID:   o.agentID,
		Side:      o.side,
		Price:     o.price,
		Remaining: o.size,
		Sequence:  o.sequence,
	}
}

// level is the FIFO of resting orders at one price, oldest at head.
type level struct {
	ticks       PriceTicks
	price       float64
	head, tail  *restingOrder
	count       int
	totalVolume float64
}

func (l *level) empty() bool { return l.head == nil }

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
	l.count++
	l.totalVolume += o.size
}

func (l *level) popHead() *restingOrder {
	o := l.head
	if o == nil {
		return nil
	}
	l.unlink(o)
	return o
}

func (l *level) unlink(o *restingOrder) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		l.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		l.tail = o.prev
	}
	o.prev, o.next, o.level = nil, nil, nil
	l.count--
	l.totalVolume -= o.size
	if l.head == nil {
		l.totalVolume = 0
	}
}

// reduce takes qty off o, which must belong to l.
func (l *level) reduce(o *restingOrder, qty float64) {
	o.size -= qty
	l.totalVolume -= qty
}

type bookSide struct {
	isBid  bool
	levels map[PriceTicks]*level
	ladder *priceLadder
}

func newBookSide(isBid bool) *bookSide {
	return &bookSide{
		isBid:  isBid,
		levels: map[PriceTicks]*level{},
		ladder: newPriceLadder(),
	}
}

func (bs *bookSide) bestLevel() *level {
	var (
		p  PriceTicks
		ok bool
	)
	if bs.isBid {
		p, ok = bs.ladder.max()
	} else {
		p, ok = bs.ladder.min()
	}
	if !ok {
		return nil
	}
	return bs.levels[p]
}

func (bs *bookSide) getOrCreate(ticks PriceTicks, price float64) *level {
	if l, ok := bs.levels[ticks]; ok {
		return l
	}
	l := &level{ticks: ticks, price: price}
	bs.levels[ticks] = l
	bs.ladder.insert(ticks)
	return l
}

func (bs *bookSide) removeLevel(l *level) {
	delete(bs.levels, l.ticks)
	bs.ladder.remove(l.ticks)
}

// removeIfEmpty drops l from the side once its last order is gone.
func (bs *bookSide) removeIfEmpty(l *level) {
	if l.empty() {
		bs.removeLevel(l)
	}
}

// walk visits levels best-first until fn returns false.
func (bs *bookSide) walk(fn func(*level) bool) {
	bs.ladder.walk(bs.isBid, func(p PriceTicks) bool {
		return fn(bs.levels[p])
	})
}
