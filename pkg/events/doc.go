/*
Package events implements a small non-blocking pub/sub broker used to
deliver resource set grant/advice change notifications from pkg/arbiter
to external subscribers (pkg/resource.Set.Subscribe).

Publish never blocks on a slow subscriber: each subscriber has a bounded
buffer, and a full buffer drops the event for that subscriber rather than
stalling the broadcaster. Events are otherwise delivered in publish order
to every subscriber that was registered at publish time.
*/
package events
