package model

import "github.com/pkg/errors"

// Replace returns a new node in which the range [from, to) is replaced
// by slice. Open sides of the slice are joined onto the nodes around
// the range.
func (n *Node) Replace(from, to int, slice Slice) (*Node, error) {
	rFrom, err := n.Resolve(from)
	if err != nil {
		return nil, err
	}
	rTo, err := n.Resolve(to)
	if err != nil {
		return nil, err
	}
	return replace(rFrom, rTo, slice)
}

func replace(rFrom, rTo *ResolvedPos, slice Slice) (*Node, error) {
	if slice.OpenStart > rFrom.Depth {
		return nil, errors.Wrap(ErrReplace, "inserted content deeper than insertion position")
	}
	if rFrom.Depth-slice.OpenStart != rTo.Depth-slice.OpenEnd {
		return nil, errors.Wrap(ErrReplace, "inconsistent open depths")
	}
	return replaceOuter(rFrom, rTo, slice, 0)
}

func replaceOuter(rFrom, rTo *ResolvedPos, slice Slice, depth int) (*Node, error) {
	index := rFrom.Index(depth)
	node := rFrom.Node(depth)
	switch {
	case index == rTo.Index(depth) && depth < rFrom.Depth-slice.OpenStart:
		inner, err := replaceOuter(rFrom, rTo, slice, depth+1)
		if err != nil {
			return nil, err
		}
		return node.Copy(node.content.ReplaceChild(index, inner)), nil
	case slice.Content.Size() == 0:
		content, err := replaceTwoWay(rFrom, rTo, depth)
		if err != nil {
			return nil, err
		}
		return closeNode(node, content)
	case slice.OpenStart == 0 && slice.OpenEnd == 0 && rFrom.Depth == depth && rTo.Depth == depth:
		parent := rFrom.Parent()
		content := parent.content
		return closeNode(parent, content.Cut(0, rFrom.ParentOffset).Append(slice.Content).Append(content.Cut(rTo.ParentOffset, content.Size())))
	default:
		start, end, err := prepareSliceForReplace(slice, rFrom)
		if err != nil {
			return nil, err
		}
		content, err := replaceThreeWay(rFrom, start, end, rTo, depth)
		if err != nil {
			return nil, err
		}
		return closeNode(node, content)
	}
}

func checkJoin(main, sub *Node) error {
	if !sub.kind.CompatibleContent(main.kind) {
		return errors.Wrapf(ErrReplace, "cannot join %s onto %s", sub.kind, main.kind)
	}
	return nil
}

func joinable(before, after *ResolvedPos, depth int) (*Node, error) {
	node := before.Node(depth)
	if err := checkJoin(node, after.Node(depth)); err != nil {
		return nil, err
	}
	return node, nil
}

func addRange(start, end *ResolvedPos, depth int, target []*Node) []*Node {
	var node *Node
	if end != nil {
		node = end.Node(depth)
	} else {
		node = start.Node(depth)
	}
	startIndex := 0
	endIndex := node.ChildCount()
	if end != nil {
		endIndex = end.Index(depth)
	}
	if start != nil {
		startIndex = start.Index(depth)
		if start.Depth > depth {
			startIndex++
		} else if start.TextOffset() > 0 {
			target = appendNode(target, start.NodeAfter())
			startIndex++
		}
	}
	for i := startIndex; i < endIndex; i++ {
		target = appendNode(target, node.Child(i))
	}
	if end != nil && end.Depth == depth && end.TextOffset() > 0 {
		target = appendNode(target, end.NodeBefore())
	}
	return target
}

func closeNode(node *Node, content Fragment) (*Node, error) {
	if err := node.checkContent(content); err != nil {
		return nil, errors.Wrap(ErrReplace, err.Error())
	}
	return node.Copy(content), nil
}

func replaceThreeWay(rFrom, rStart, rEnd, rTo *ResolvedPos, depth int) (Fragment, error) {
	var openStart, openEnd *Node
	var err error
	if rFrom.Depth > depth {
		if openStart, err = joinable(rFrom, rStart, depth+1); err != nil {
			return Fragment{}, err
		}
	}
	if rTo.Depth > depth {
		if openEnd, err = joinable(rEnd, rTo, depth+1); err != nil {
			return Fragment{}, err
		}
	}

	content := addRange(nil, rFrom, depth, nil)
	if openStart != nil && openEnd != nil && rStart.Index(depth) == rEnd.Index(depth) {
		if err := checkJoin(openStart, openEnd); err != nil {
			return Fragment{}, err
		}
		inner, err := replaceThreeWay(rFrom, rStart, rEnd, rTo, depth+1)
		if err != nil {
			return Fragment{}, err
		}
		closed, err := closeNode(openStart, inner)
		if err != nil {
			return Fragment{}, err
		}
		content = appendNode(content, closed)
	} else {
		if openStart != nil {
			inner, err := replaceTwoWay(rFrom, rStart, depth+1)
			if err != nil {
				return Fragment{}, err
			}
			closed, err := closeNode(openStart, inner)
			if err != nil {
				return Fragment{}, err
			}
			content = appendNode(content, closed)
		}
		content = addRange(rStart, rEnd, depth, content)
		if openEnd != nil {
			inner, err := replaceTwoWay(rEnd, rTo, depth+1)
			if err != nil {
				return Fragment{}, err
			}
			closed, err := closeNode(openEnd, inner)
			if err != nil {
				return Fragment{}, err
			}
			content = appendNode(content, closed)
		}
	}
	content = addRange(rTo, nil, depth, content)
	return NewFragment(content...), nil
}

func replaceTwoWay(rFrom, rTo *ResolvedPos, depth int) (Fragment, error) {
	content := addRange(nil, rFrom, depth, nil)
	if rFrom.Depth > depth {
		kind, err := joinable(rFrom, rTo, depth+1)
		if err != nil {
			return Fragment{}, err
		}
		inner, err := replaceTwoWay(rFrom, rTo, depth+1)
		if err != nil {
			return Fragment{}, err
		}
		closed, err := closeNode(kind, inner)
		if err != nil {
			return Fragment{}, err
		}
		content = appendNode(content, closed)
	}
	content = addRange(rTo, nil, depth, content)
	return NewFragment(content...), nil
}

func prepareSliceForReplace(slice Slice, along *ResolvedPos) (*ResolvedPos, *ResolvedPos, error) {
	extra := along.Depth - slice.OpenStart
	parent := along.Node(extra)
	node := parent.Copy(slice.Content)
	for i := extra - 1; i >= 0; i-- {
		node = along.Node(i).Copy(NewFragment(node))
	}
	start, err := node.Resolve(slice.OpenStart + extra)
	if err != nil {
		return nil, nil, err
	}
	end, err := node.Resolve(node.content.Size() - slice.OpenEnd - extra)
	if err != nil {
		return nil, nil, err
	}
	return start, end, nil
}
