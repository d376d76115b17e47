// Package match reconciles the marbles of one moment against the events that
// were received for it.
//
// Every marble is checked against every event and the outcomes are kept in a
// Table. The matching policies are plain queries over that table, so they can
// be tested without any producer or timing machinery:
//
//	Unordered  every marble and every event matched by something
//	Rows       every marble matched by some event
//	AnyRow     one marble matched by some event
//	InOrder    marbles matched at strictly increasing event positions
//
// Ordered groups are not table based: marbles and events are zipped pairwise.
//
// Coverage is deliberately weaker than a perfect one-to-one matching. A check
// accepting several marbles for one event can make Unordered pass where no
// consistent assignment exists.
package match
