// Package resource implements resource set and client bookkeeping: the
// mutable objects an embedding application acquires and releases
// resources through. Arbitration itself (mask computation) belongs to
// pkg/arbiter; this package only tracks the request state machine and
// notification plumbing described for a resource set.
package resource

import (
	"fmt"
	"sync/atomic"

	"github.com/murphy-project/murphyd/pkg/attr"
	"github.com/murphy-project/murphyd/pkg/events"
	"github.com/murphy-project/murphyd/pkg/merr"
)

// RequestType mirrors the original no_request/release/acquire states a
// set's pending request can be in.
type RequestType int

const (
	RequestNone RequestType = iota
	RequestRelease
	RequestAcquire
)

// State is the externally observable lifecycle of a resource set's
// outstanding request.
type State int

const (
	StateIdle State = iota
	StatePending
	StateGranted
	StateWaiting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateGranted:
		return "granted"
	case StateWaiting:
		return "waiting"
	default:
		return "unknown"
	}
}

var nextClientID uint32

// Client represents one embedding-application connection. UserData is
// opaque and returned unchanged in every event delivered for sets owned
// by this client.
type Client struct {
	ID       uint32
	Name     string
	UserData any
}

// NewClient creates a client with a process-unique id.
func NewClient(name string, userData any) *Client {
	id := atomic.AddUint32(&nextClientID, 1)
	return &Client{ID: id, Name: name, UserData: userData}
}

// Instance is one resource attached to a set: which definition it names,
// whether it was marked mandatory, whether this set is asking to share
// it rather than hold it exclusively, and its own attribute values.
type Instance struct {
	DefName          string
	Mask             uint32
	Mandatory        bool
	ShareableRequest bool
	Attr             *attr.Record
}

var nextSetID uint32

// Set is a resource set: a named bundle of resource instances a client
// wants in a particular zone, at a particular class priority. All is
// the bitmask of every resource instance added to the set; Mandatory is
// the subset that must be granted in full or not at all; Grant is the
// arbiter's last-computed authoritative ownership; Advice is the
// arbiter's hypothetical "if you asked right now" outcome.
type Set struct {
	ID       uint32
	Zone     string
	Class    string
	Client   *Client
	Priority uint32

	resources []Instance
	all       uint32
	mandatory uint32

	Grant  uint32
	Advice uint32

	reqType RequestType
	state   State
	stamp   uint32
	reqno   uint32

	broker *events.Broker
}

// NewSet creates an empty resource set bound to zone/class/client.
func NewSet(zone, class string, client *Client, priority uint32) *Set {
	id := atomic.AddUint32(&nextSetID, 1)
	s := &Set{
		ID:       id,
		Zone:     zone,
		Class:    class,
		Client:   client,
		Priority: priority,
		state:    StateIdle,
		broker:   events.NewBroker(),
	}
	s.broker.Start()
	return s
}

// AddResource attaches a resource instance to the set by resource
// definition name and bit position (obtained from the registry).
// shareableRequest marks that this set is content to share the resource
// with other sets that also request it shareably; it only takes effect
// for a resource definition that itself allows sharing. ErrNameCollision
// if that definition is already attached.
func (s *Set) AddResource(defName string, bit uint32, mandatory, shareableRequest bool, attrs *attr.Record) error {
	for _, r := range s.resources {
		if r.DefName == defName {
			return fmt.Errorf("resource: %w: %q already in set %d", merr.ErrNameCollision, defName, s.ID)
		}
	}
	mask := uint32(1) << bit
	s.resources = append(s.resources, Instance{DefName: defName, Mask: mask, Mandatory: mandatory, ShareableRequest: shareableRequest, Attr: attrs})
	s.all |= mask
	if mandatory {
		s.mandatory |= mask
	}
	return nil
}

// ShareableMask returns the subset of All that this set is willing to
// share, gated by resDefShareable — the bitmask of resource definitions
// that themselves allow sharing (from the registry). A resource is only
// ever granted shareably when both sides agree.
func (s *Set) ShareableMask(resDefShareable uint32) uint32 {
	var mask uint32
	for _, r := range s.resources {
		if r.ShareableRequest {
			mask |= r.Mask
		}
	}
	return mask & resDefShareable
}

// Resources returns the set's attached resource instances.
func (s *Set) Resources() []Instance {
	out := make([]Instance, len(s.resources))
	copy(out, s.resources)
	return out
}

// All returns the full resource bitmask requested by this set.
func (s *Set) All() uint32 { return s.all }

// Mandatory returns the subset of All that must be granted in full.
func (s *Set) Mandatory() uint32 { return s.mandatory }

// State returns the set's current request state.
func (s *Set) State() State { return s.state }

// Stamp returns the set's last-request sequence stamp, used by the
// arbiter to break class-priority ties in favor of the earliest request.
func (s *Set) Stamp() uint32 { return s.stamp }

// Reqno returns the number of acquire/release calls made on this set.
func (s *Set) Reqno() uint32 { return s.reqno }

// Acquire requests the set's full resource bitmask. It only records the
// request; pkg/arbiter.Engine.Run computes and applies the resulting
// Grant/Advice. Every call, whatever the current state, moves the set to
// pending with an acquire request, records stamp, and bumps Reqno.
func (s *Set) Acquire(stamp uint32) {
	s.reqType = RequestAcquire
	s.state = StatePending
	s.stamp = stamp
	s.reqno++
}

// Release requests that the set give up ownership. Per the resolved
// design question, this never silently rewrites Grant itself — it only
// marks the request so the next arbitration run drops this set's claim.
func (s *Set) Release(stamp uint32) {
	s.reqType = RequestRelease
	s.state = StateIdle
	s.stamp = stamp
	s.reqno++
}

// RequestType returns the set's currently pending request kind.
func (s *Set) RequestType() RequestType { return s.reqType }

// ApplyOutcome is called by pkg/arbiter after each run to record the new
// grant/advice masks, clear an honoured request, and publish a
// notification if anything changed. A request is honoured, and cleared
// back to no_request, when it was a release, or an acquire whose
// mandatory resources are fully contained in grant.
//
// State is derived from grant/mandatory on every call, not just while a
// request is outstanding: a no_request set whose grant is withdrawn by a
// higher-priority acquirer on some later run (preemption) must still
// surface as StateWaiting rather than keep reporting the StateGranted it
// was left in when its request was last honoured.
func (s *Set) ApplyOutcome(grant, advice uint32) (changed bool) {
	grantChanged := grant != s.Grant
	adviceChanged := advice != s.Advice
	s.Grant = grant
	s.Advice = advice

	// Matches spec.md's granted invariant: (mandatory & grant) ==
	// mandatory and grant != 0.
	satisfied := grant != 0 && s.mandatory&^grant == 0

	switch {
	case satisfied:
		s.state = StateGranted
	case s.reqType == RequestRelease:
		s.state = StateIdle
	case s.reqType == RequestAcquire:
		s.state = StateWaiting
	case s.state != StateIdle:
		// no_request set left unsatisfied by this run — either a
		// preempted former holder or a still-waiting acquirer whose
		// request was already cleared on an earlier run.
		s.state = StateWaiting
	}

	honoured := s.reqType == RequestRelease || (s.reqType == RequestAcquire && s.mandatory&^grant == 0)
	if honoured {
		s.reqType = RequestNone
	}

	if grantChanged {
		s.broker.Publish(&events.Event{Type: events.EventSetGranted, Zone: s.Zone, SetID: s.ID, Grant: grant, Advice: advice, Reqno: s.reqno, UserData: s.userData()})
	} else if adviceChanged {
		s.broker.Publish(&events.Event{Type: events.EventSetAdvised, Zone: s.Zone, SetID: s.ID, Grant: grant, Advice: advice, Reqno: s.reqno, UserData: s.userData()})
	}
	return grantChanged || adviceChanged
}

func (s *Set) userData() any {
	if s.Client == nil {
		return nil
	}
	return s.Client.UserData
}

// Subscribe registers sub to receive grant/advice change notifications
// for this set.
func (s *Set) Subscribe() events.Subscriber {
	return s.broker.Subscribe()
}

// Unsubscribe removes a previously registered subscription.
func (s *Set) Unsubscribe(sub events.Subscriber) {
	s.broker.Unsubscribe(sub)
}

// Destroy tears the set down and notifies subscribers one last time.
func (s *Set) Destroy() {
	s.broker.Publish(&events.Event{Type: events.EventSetDestroyed, Zone: s.Zone, SetID: s.ID, Reqno: s.reqno, UserData: s.userData()})
	s.broker.Stop()
}
