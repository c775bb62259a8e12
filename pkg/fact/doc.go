/*
Package fact is the narrow seam between pkg/mdb and pkg/resolver: a fact
is an mdb.Table the resolver cares about, and Registry's only extra
bookkeeping is "who subscribed" and "how many times has this settled".
It does not import pkg/resolver — the resolver hands it a plain
func([]string) callback at startup instead, so facts can change without
the resolver package needing to exist yet.
*/
package fact
