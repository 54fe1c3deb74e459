// Package extract turns host declarations into facts.
//
// Every extractor runs in two phases. Candidate is a cheap, permissive
// match on attribute simple names. Resolve checks that the attributes really
// are the generator's attribute types, reads their constant arguments and
// builds the fact. Outcomes are explicit Result variants; nothing panics
// across the package boundary.
package extract
