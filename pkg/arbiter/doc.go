/*
Package arbiter computes grant and advice masks for a zone's resource
sets. Engine.Run walks every registered set once, highest class priority
first, accumulating which resources are already owned exclusively or
shareably as it goes, and hands each set its outcome through
resource.Set.ApplyOutcome. Nothing is remembered between runs beyond what
each Set already holds in Grant: every run re-derives ownership from
scratch, so a higher-priority request always displaces a lower-priority
holder on the very next run.
*/
package arbiter
