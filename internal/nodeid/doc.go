// internal/nodeid/doc.go

/*
Package nodeid provides a structured representation for the identifiers of
rendered nodes.

The canonical format is `var[#row][suffix]`: the variable id, an optional
`#row` qualifier for cells of table rows, and an optional suffix naming an
auxiliary node (`_d` container, `_n` detail scope, `_rv` range echo, `_del`
remove-row affordance), e.g. `pin#2_n`.

This package centralizes all formatting and parsing of these identifiers so
the materializer, reconciler and view filter agree on them.
*/
package nodeid
