/*
Package resource implements the resource set and client objects an
embedding application acquires and releases resources through. A Set
tracks which resources it wants (All), which of those are non-negotiable
(Mandatory), and the request state machine (idle/pending/granted/waiting)
driven by Acquire/Release. It never computes Grant/Advice itself — that
is pkg/arbiter's job, applied back via Set.ApplyOutcome — so a set's
state always reflects the last completed arbitration run, never a
speculative one.
*/
package resource
