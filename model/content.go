package model

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"
)

// ContentMatch represents a match state of a node type's content expression,
// and can be used to find out whether further content matches here, and
// whether a given position is a valid end of the node.
type ContentMatch struct {
	// True when this match state represents a valid end of the node.
	ValidEnd bool
	next     []MatchEdge

	mu        sync.Mutex
	wrapCache map[*NodeType][]*NodeType
}

// MatchEdge is an outgoing edge of a match state: the node type that can be
// matched and the state after it.
type MatchEdge struct {
	Type *NodeType
	Next *ContentMatch
}

// EmptyContentMatch is the match state of nodes that allow no content.
var EmptyContentMatch = &ContentMatch{ValidEnd: true}

// ParseContentMatch compiles a content expression into a deterministic
// automaton. Names in the expression refer to node types or groups among the
// given types; for groups, the order of types is kept.
func ParseContentMatch(expr string, nodeTypes []*NodeType) (*ContentMatch, error) {
	stream := newTokenStream(expr, nodeTypes)
	if stream.peek() == "" {
		return EmptyContentMatch, nil
	}
	parsed, err := parseExpr(stream)
	if err != nil {
		return nil, err
	}
	if stream.peek() != "" {
		return nil, stream.err("unexpected trailing text")
	}
	match := buildDFA(buildNFA(parsed))
	if err := checkForDeadEnds(match, stream); err != nil {
		return nil, err
	}
	return match, nil
}

// MatchType matches a node type, returning a match after that node if
// successful.
func (cm *ContentMatch) MatchType(typ *NodeType) *ContentMatch {
	for _, edge := range cm.next {
		if edge.Type == typ {
			return edge.Next
		}
	}
	return nil
}

// MatchFragment tries to match a fragment, optionally limited to the children
// between start and end. Returns the resulting match when successful.
func (cm *ContentMatch) MatchFragment(frag *Fragment, bounds ...int) *ContentMatch {
	start, end := 0, frag.ChildCount()
	if len(bounds) > 0 {
		start = bounds[0]
	}
	if len(bounds) > 1 {
		end = bounds[1]
	}
	cur := cm
	for i := start; cur != nil && i < end; i++ {
		cur = cur.MatchType(frag.Content[i].Type)
	}
	return cur
}

func (cm *ContentMatch) inlineContent() bool {
	return len(cm.next) != 0 && cm.next[0].Type.IsInline()
}

// DefaultType gets the first matching node type at this match position that
// can be generated.
func (cm *ContentMatch) DefaultType() *NodeType {
	for _, edge := range cm.next {
		if generatable(edge.Type) {
			return edge.Type
		}
	}
	return nil
}

func generatable(t *NodeType) bool {
	return !(t.IsText() || t.HasRequiredAttrs())
}

func (cm *ContentMatch) compatible(other *ContentMatch) bool {
	for _, a := range cm.next {
		for _, b := range other.next {
			if a.Type == b.Type {
				return true
			}
		}
	}
	return false
}

// FillBefore tries to match the given fragment, and if that fails, sees if it
// can be made to match by inserting nodes in front of it. When successful,
// returns a fragment of inserted nodes (which may be empty if nothing had to
// be inserted). When toEnd is true, only returns a fragment if the resulting
// match goes to the end of the content expression.
func (cm *ContentMatch) FillBefore(after *Fragment, toEnd bool, startIndex int) *Fragment {
	seen := map[*ContentMatch]bool{cm: true}
	var search func(match *ContentMatch, types []*NodeType) *Fragment
	search = func(match *ContentMatch, types []*NodeType) *Fragment {
		finished := match.MatchFragment(after, startIndex)
		if finished != nil && (!toEnd || finished.ValidEnd) {
			nodes := make([]*Node, 0, len(types))
			for _, t := range types {
				node, err := t.CreateAndFill(nil, nil, nil)
				if err != nil || node == nil {
					return nil
				}
				nodes = append(nodes, node)
			}
			return FragmentFromArray(nodes)
		}
		for _, edge := range match.next {
			if generatable(edge.Type) && !seen[edge.Next] {
				seen[edge.Next] = true
				path := append(append([]*NodeType{}, types...), edge.Type)
				if found := search(edge.Next, path); found != nil {
					return found
				}
			}
		}
		return nil
	}
	return search(cm, nil)
}

// FindWrapping finds a set of wrapping node types that would allow a node of
// the given type to appear at this position. The result may be empty (when it
// fits directly) and will be nil when no such wrapping exists.
func (cm *ContentMatch) FindWrapping(target *NodeType) []*NodeType {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if wrap, ok := cm.wrapCache[target]; ok {
		return wrap
	}
	computed := cm.computeWrapping(target)
	if cm.wrapCache == nil {
		cm.wrapCache = map[*NodeType][]*NodeType{}
	}
	cm.wrapCache[target] = computed
	return computed
}

func (cm *ContentMatch) computeWrapping(target *NodeType) []*NodeType {
	type step struct {
		match *ContentMatch
		typ   *NodeType
		via   *step
	}
	seen := map[string]bool{}
	active := []*step{{match: cm}}
	for len(active) > 0 {
		current := active[0]
		active = active[1:]
		if current.match.MatchType(target) != nil {
			result := []*NodeType{}
			for obj := current; obj.typ != nil; obj = obj.via {
				result = append([]*NodeType{obj.typ}, result...)
			}
			return result
		}
		for _, edge := range current.match.next {
			t := edge.Type
			if !t.IsLeaf() && !t.HasRequiredAttrs() && !seen[t.Name] && (current.typ == nil || edge.Next.ValidEnd) {
				active = append(active, &step{match: t.ContentMatch, typ: t, via: current})
				seen[t.Name] = true
			}
		}
	}
	return nil
}

// EdgeCount returns the number of outgoing edges this node has in the finite
// automaton that describes the content expression.
func (cm *ContentMatch) EdgeCount() int {
	return len(cm.next)
}

// Edge gets the nth outgoing edge from this node in the finite automaton that
// describes the content expression.
func (cm *ContentMatch) Edge(n int) (MatchEdge, error) {
	if n < 0 || n >= len(cm.next) {
		return MatchEdge{}, rangeError("there's no %dth edge in this content match", n)
	}
	return cm.next[n], nil
}

// String renders the automaton, one state per line, for debugging.
func (cm *ContentMatch) String() string {
	var seen []*ContentMatch
	var scan func(m *ContentMatch)
	scan = func(m *ContentMatch) {
		seen = append(seen, m)
		for _, edge := range m.next {
			if indexOfMatch(seen, edge.Next) < 0 {
				scan(edge.Next)
			}
		}
	}
	scan(cm)
	lines := make([]string, len(seen))
	for i, m := range seen {
		var sb strings.Builder
		sb.WriteString(strconv.Itoa(i))
		if m.ValidEnd {
			sb.WriteString("*")
		}
		sb.WriteString(" ")
		for j, edge := range m.next {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(edge.Type.Name + "->" + strconv.Itoa(indexOfMatch(seen, edge.Next)))
		}
		lines[i] = sb.String()
	}
	return strings.Join(lines, "\n")
}

func indexOfMatch(list []*ContentMatch, m *ContentMatch) int {
	for i, other := range list {
		if other == m {
			return i
		}
	}
	return -1
}

type tokenStream struct {
	str       string
	nodeTypes []*NodeType
	inline    *bool
	pos       int
	tokens    []string
}

// newTokenStream splits an expression into words and single punctuation
// characters.
func newTokenStream(str string, nodeTypes []*NodeType) *tokenStream {
	var tokens []string
	runes := []rune(str)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case isWordRune(r):
			j := i
			for j < len(runes) && isWordRune(runes[j]) {
				j++
			}
			tokens = append(tokens, string(runes[i:j]))
			i = j
		default:
			tokens = append(tokens, string(r))
			i++
		}
	}
	return &tokenStream{str: str, nodeTypes: nodeTypes, tokens: tokens}
}

func isWordRune(r rune) bool {
	return r == '_' || ('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}

func (ts *tokenStream) peek() string {
	if ts.pos >= len(ts.tokens) {
		return ""
	}
	return ts.tokens[ts.pos]
}

func (ts *tokenStream) eat(tok string) bool {
	if ts.peek() == tok && tok != "" {
		ts.pos++
		return true
	}
	return false
}

func (ts *tokenStream) err(format string, args ...interface{}) error {
	e := schemaError(format, args...)
	e.Message += " (in content expression " + strconv.Quote(ts.str) + ")"
	return e
}

type exprKind int

const (
	exprChoice exprKind = iota
	exprSeq
	exprPlus
	exprStar
	exprOpt
	exprRange
	exprName
)

type expr struct {
	kind  exprKind
	exprs []*expr
	sub   *expr
	min   int
	max   int // -1 for unbounded
	value *NodeType
}

func parseExpr(stream *tokenStream) (*expr, error) {
	var exprs []*expr
	for {
		seq, err := parseExprSeq(stream)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, seq)
		if !stream.eat("|") {
			break
		}
	}
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return &expr{kind: exprChoice, exprs: exprs}, nil
}

func parseExprSeq(stream *tokenStream) (*expr, error) {
	var exprs []*expr
	for {
		sub, err := parseExprSubscript(stream)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, sub)
		next := stream.peek()
		if next == "" || next == ")" || next == "|" {
			break
		}
	}
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return &expr{kind: exprSeq, exprs: exprs}, nil
}

func parseExprSubscript(stream *tokenStream) (*expr, error) {
	e, err := parseExprAtom(stream)
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case stream.eat("+"):
			e = &expr{kind: exprPlus, sub: e}
		case stream.eat("*"):
			e = &expr{kind: exprStar, sub: e}
		case stream.eat("?"):
			e = &expr{kind: exprOpt, sub: e}
		case stream.eat("{"):
			if e, err = parseExprRange(stream, e); err != nil {
				return nil, err
			}
		default:
			return e, nil
		}
	}
}

func parseNum(stream *tokenStream) (int, error) {
	tok := stream.peek()
	n, err := strconv.Atoi(tok)
	if err != nil || n < 0 {
		return 0, stream.err("expected number, got %q", tok)
	}
	stream.pos++
	return n, nil
}

func parseExprRange(stream *tokenStream, e *expr) (*expr, error) {
	min, err := parseNum(stream)
	if err != nil {
		return nil, err
	}
	max := min
	if stream.eat(",") {
		if stream.peek() != "}" {
			if max, err = parseNum(stream); err != nil {
				return nil, err
			}
		} else {
			max = -1
		}
	}
	if !stream.eat("}") {
		return nil, stream.err("unclosed braced range")
	}
	if max != -1 && max < min {
		return nil, stream.err("invalid range {%d,%d}", min, max)
	}
	return &expr{kind: exprRange, min: min, max: max, sub: e}, nil
}

func resolveName(stream *tokenStream, name string) ([]*NodeType, error) {
	for _, t := range stream.nodeTypes {
		if t.Name == name {
			return []*NodeType{t}, nil
		}
	}
	var result []*NodeType
	for _, t := range stream.nodeTypes {
		if t.InGroup(name) {
			result = append(result, t)
		}
	}
	if len(result) == 0 {
		return nil, stream.err("no node type or group %q found", name)
	}
	return result, nil
}

func parseExprAtom(stream *tokenStream) (*expr, error) {
	if stream.eat("(") {
		e, err := parseExpr(stream)
		if err != nil {
			return nil, err
		}
		if !stream.eat(")") {
			return nil, stream.err("missing closing paren")
		}
		return e, nil
	}
	tok := stream.peek()
	if tok == "" || !isWordRune([]rune(tok)[0]) {
		return nil, stream.err("unexpected token %q", tok)
	}
	types, err := resolveName(stream, tok)
	if err != nil {
		return nil, err
	}
	exprs := make([]*expr, 0, len(types))
	for _, t := range types {
		inline := t.IsInline()
		if stream.inline == nil {
			stream.inline = &inline
		} else if *stream.inline != inline {
			return nil, stream.err("mixing inline and block content")
		}
		exprs = append(exprs, &expr{kind: exprName, value: t})
	}
	stream.pos++
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return &expr{kind: exprChoice, exprs: exprs}, nil
}

// nfaEdge is an edge of the non-deterministic automaton. A nil term is an
// epsilon edge, a negative target is not yet connected.
type nfaEdge struct {
	term *NodeType
	to   int
}

type nfa [][]*nfaEdge

// buildNFA constructs an NFA from an expression. The last state is the
// accepting one.
func buildNFA(e *expr) nfa {
	states := nfa{nil}
	node := func() int {
		states = append(states, nil)
		return len(states) - 1
	}
	edge := func(from, to int, term *NodeType) *nfaEdge {
		ed := &nfaEdge{term: term, to: to}
		states[from] = append(states[from], ed)
		return ed
	}
	connect := func(edges []*nfaEdge, to int) {
		for _, ed := range edges {
			ed.to = to
		}
	}
	var compile func(e *expr, from int) []*nfaEdge
	compile = func(e *expr, from int) []*nfaEdge {
		switch e.kind {
		case exprChoice:
			var out []*nfaEdge
			for _, sub := range e.exprs {
				out = append(out, compile(sub, from)...)
			}
			return out
		case exprSeq:
			for i := 0; ; i++ {
				next := compile(e.exprs[i], from)
				if i == len(e.exprs)-1 {
					return next
				}
				from = node()
				connect(next, from)
			}
		case exprStar:
			loop := node()
			edge(from, loop, nil)
			connect(compile(e.sub, loop), loop)
			return []*nfaEdge{edge(loop, -1, nil)}
		case exprPlus:
			loop := node()
			connect(compile(e.sub, from), loop)
			connect(compile(e.sub, loop), loop)
			return []*nfaEdge{edge(loop, -1, nil)}
		case exprOpt:
			return append([]*nfaEdge{edge(from, -1, nil)}, compile(e.sub, from)...)
		case exprRange:
			cur := from
			for i := 0; i < e.min; i++ {
				next := node()
				connect(compile(e.sub, cur), next)
				cur = next
			}
			if e.max == -1 {
				connect(compile(e.sub, cur), cur)
			} else {
				for i := e.min; i < e.max; i++ {
					next := node()
					edge(cur, next, nil)
					connect(compile(e.sub, cur), next)
					cur = next
				}
			}
			return []*nfaEdge{edge(cur, -1, nil)}
		default:
			return []*nfaEdge{edge(from, -1, e.value)}
		}
	}
	connect(compile(e, 0), node())
	return states
}

// nullFrom returns the states reachable from node through epsilon edges,
// sorted in descending order.
func (states nfa) nullFrom(node int) []int {
	var result []int
	var scan func(n int)
	scan = func(n int) {
		edges := states[n]
		if len(edges) == 1 && edges[0].term == nil {
			scan(edges[0].to)
			return
		}
		result = append(result, n)
		for _, ed := range edges {
			if ed.term == nil && !containsInt(result, ed.to) {
				scan(ed.to)
			}
		}
	}
	scan(node)
	sort.Sort(sort.Reverse(sort.IntSlice(result)))
	return result
}

func containsInt(list []int, n int) bool {
	for _, v := range list {
		if v == n {
			return true
		}
	}
	return false
}

func stateKey(set []int) string {
	parts := make([]string, len(set))
	for i, n := range set {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// buildDFA converts the NFA into a deterministic automaton whose states are
// sets of NFA states.
func buildDFA(states nfa) *ContentMatch {
	labeled := map[string]*ContentMatch{}
	accept := len(states) - 1
	var explore func(set []int) *ContentMatch
	explore = func(set []int) *ContentMatch {
		type transition struct {
			term *NodeType
			to   []int
		}
		var out []*transition
		for _, n := range set {
			for _, ed := range states[n] {
				if ed.term == nil {
					continue
				}
				var tr *transition
				for _, o := range out {
					if o.term == ed.term {
						tr = o
					}
				}
				for _, target := range states.nullFrom(ed.to) {
					if tr == nil {
						tr = &transition{term: ed.term}
						out = append(out, tr)
					}
					if !containsInt(tr.to, target) {
						tr.to = append(tr.to, target)
					}
				}
			}
		}
		state := &ContentMatch{ValidEnd: containsInt(set, accept)}
		labeled[stateKey(set)] = state
		for _, tr := range out {
			sort.Sort(sort.Reverse(sort.IntSlice(tr.to)))
			next, ok := labeled[stateKey(tr.to)]
			if !ok {
				next = explore(tr.to)
			}
			state.next = append(state.next, MatchEdge{Type: tr.term, Next: next})
		}
		return state
	}
	return explore(states.nullFrom(0))
}

func checkForDeadEnds(match *ContentMatch, stream *tokenStream) error {
	work := []*ContentMatch{match}
	for i := 0; i < len(work); i++ {
		state := work[i]
		dead := !state.ValidEnd
		var nodes []string
		for _, edge := range state.next {
			nodes = append(nodes, edge.Type.Name)
			if dead && generatable(edge.Type) {
				dead = false
			}
			if indexOfMatch(work, edge.Next) < 0 {
				work = append(work, edge.Next)
			}
		}
		if dead {
			return stream.err("only non-generatable nodes (%s) in a required position", strings.Join(nodes, ", "))
		}
	}
	return nil
}
