/*
Package nodeid provides the structured address of an operator node and of a
single compile slice of that node.

The canonical format is `<op_type>.<name>` for a node and
`<op_type>.<name>[<slice>]` for one thread-count slice of it,
e.g. `Conv2D.backbone/conv1` or `MatMul.proj[3]`.

Plans may also reference a node by its bare name; Parse accepts that form and
leaves the op type empty so callers can resolve it against the plan.
*/
package nodeid
