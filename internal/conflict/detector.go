package conflict

import (
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultLogLimit is the operation log capacity when none is configured.
const DefaultLogLimit = 200

type EventKind string

const (
	EventAdded    EventKind = "added"
	EventResolved EventKind = "resolved"
)

// Event is delivered to subscribers when a conflict is added or resolved.
type Event struct {
	Kind     EventKind
	Conflict *Conflict
}

type Listener func(Event)

type logged struct {
	op     Operation
	remote bool
	// settled local edits have already been compared against a remote edit
	// of the same field and cannot conflict again.
	settled bool
}

// Detector keeps the rolling operation log and the conflicts found in it.
// It is not safe for concurrent use.
type Detector struct {
	log       []*logged
	limit     int
	conflicts map[string]*Conflict
	order     []string
	listeners map[int]Listener
	nextID    int
	now       func() time.Time
}

func NewDetector(limit int, now func() time.Time) *Detector {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	if now == nil {
		now = time.Now
	}
	return &Detector{
		limit:     limit,
		conflicts: make(map[string]*Conflict),
		listeners: make(map[int]Listener),
		now:       now,
	}
}

// Record appends a locally applied operation to the log.
func (d *Detector) Record(op Operation) {
	d.append(&logged{op: op})
}

// ReceiveRemote compares a remote operation with the latest unsettled local
// edit of the same block field. A remote edit whose old value equals the
// local new value was made on top of the local edit and is not a conflict.
// The remote operation is logged either way.
func (d *Detector) ReceiveRemote(remote Operation) *Conflict {
	defer d.append(&logged{op: remote, remote: true})

	if !remote.writesField() {
		return nil
	}

	local := d.latestLocal(remote.BlockID, remote.TargetField())
	if local == nil {
		return nil
	}
	local.settled = true

	if remote.OldValue != nil && SameValue(remote.OldValue, local.op.Value()) {
		return nil
	}

	c := DetectConflict(local.op, remote)
	if c == nil {
		return nil
	}
	c.DetectedAt = d.now()
	d.add(c)

	return c.clone()
}

func (d *Detector) latestLocal(blockID, field string) *logged {
	for i := len(d.log) - 1; i >= 0; i-- {
		entry := d.log[i]
		if entry.remote || entry.settled {
			continue
		}
		if entry.op.BlockID == blockID && entry.op.writesField() && entry.op.TargetField() == field {
			return entry
		}
	}
	return nil
}

func (d *Detector) append(entry *logged) {
	d.log = append(d.log, entry)
	if over := len(d.log) - d.limit; over > 0 {
		d.log = append(d.log[:0:0], d.log[over:]...)
	}
}

// Add registers an externally detected conflict.
func (d *Detector) Add(c *Conflict) {
	d.add(c.clone())
}

func (d *Detector) add(c *Conflict) {
	d.conflicts[c.ID] = c
	d.order = append(d.order, c.ID)
	logrus.Warnf("conflict %s on block %s field %s between %s and %s", c.ID, c.BlockID, c.Field, c.LocalUserID, c.RemoteUserID)
	d.notify(Event{Kind: EventAdded, Conflict: c.clone()})
}

// Decide returns the conflict with the value a resolution by side would
// write, without resolving it. A merged resolution without a value merges
// text fields against their base.
func (d *Detector) Decide(id string, side Side, merged any) (*Conflict, error) {
	c, ok := d.conflicts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if c.Resolved {
		return nil, ErrResolved
	}

	var value any
	switch side {
	case SideLocal:
		value = c.LocalValue
	case SideRemote:
		value = c.RemoteValue
	case SideMerged:
		value = merged
		if value == nil {
			text, err := c.MergedValue()
			if err != nil {
				return nil, err
			}
			value = text
		}
	default:
		return nil, ErrInvalidSide
	}

	decided := c.clone()
	decided.Resolution = side
	decided.ResolvedValue = value
	return decided, nil
}

// DecideWith is Decide with the side picked by strategy.
func (d *Detector) DecideWith(id string, strategy Strategy) (*Conflict, error) {
	c, ok := d.conflicts[id]
	if !ok {
		return nil, ErrNotFound
	}
	res, err := AutoResolve(c, strategy)
	if err != nil {
		return nil, err
	}
	return d.Decide(id, res.Side, res.Value)
}

// Resolve records a decision and notifies the subscribers.
func (d *Detector) Resolve(id string, side Side, merged any) (*Conflict, error) {
	decided, err := d.Decide(id, side, merged)
	if err != nil {
		return nil, err
	}

	c := d.conflicts[id]
	now := d.now()
	c.Resolved = true
	c.Resolution = decided.Resolution
	c.ResolvedValue = decided.ResolvedValue
	c.ResolvedAt = &now
	logrus.Infof("conflict %s resolved with %s value", id, side)
	d.notify(Event{Kind: EventResolved, Conflict: c.clone()})

	return c.clone(), nil
}

// ResolveWith resolves a conflict by strategy.
func (d *Detector) ResolveWith(id string, strategy Strategy) (*Conflict, error) {
	decided, err := d.DecideWith(id, strategy)
	if err != nil {
		return nil, err
	}
	return d.Resolve(id, decided.Resolution, decided.ResolvedValue)
}

// Get returns a conflict by id.
func (d *Detector) Get(id string) (*Conflict, error) {
	c, ok := d.conflicts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c.clone(), nil
}

// Pending returns the unresolved conflicts in detection order.
func (d *Detector) Pending() []*Conflict {
	var out []*Conflict
	for _, id := range d.order {
		if c := d.conflicts[id]; !c.Resolved {
			out = append(out, c.clone())
		}
	}
	return out
}

func (d *Detector) PendingCount() int {
	n := 0
	for _, c := range d.conflicts {
		if !c.Resolved {
			n++
		}
	}
	return n
}

// All returns every conflict in detection order.
func (d *Detector) All() []*Conflict {
	out := make([]*Conflict, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.conflicts[id].clone())
	}
	return out
}

// Operations returns the logged operations, oldest first.
func (d *Detector) Operations() []Operation {
	out := make([]Operation, 0, len(d.log))
	for _, entry := range d.log {
		out = append(out, entry.op)
	}
	return out
}

// Subscribe registers a listener and returns a function that removes it.
func (d *Detector) Subscribe(l Listener) func() {
	id := d.nextID
	d.nextID++
	d.listeners[id] = l
	return func() {
		delete(d.listeners, id)
	}
}

func (d *Detector) notify(e Event) {
	for _, l := range d.listeners {
		l(e)
	}
}
