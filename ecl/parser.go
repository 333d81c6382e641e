package ecl

import (
	"strconv"

	"github.com/eldrix/snomed-terminology/apperr"
)

// parser is a recursive-descent parser over a single-token lookahead
// stream produced by lexer.
type parser struct {
	lex     *lexer
	current token
}

// Parse compiles an ECL expression string into an Expr tree.
func Parse(expr string) (Expr, error) {
	lex := newLexer(expr)
	p := &parser{lex: lex}
	if err := p.advance(); err != nil {
		return nil, apperr.Query(0, "%s", err)
	}
	e, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.current.kind != tokenEOF {
		return nil, apperr.Query(p.current.pos, "unexpected trailing input at %q", p.current.text)
	}
	return e, nil
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.current = t
	return nil
}

func (p *parser) expect(kind tokenKind, what string) error {
	if p.current.kind != kind {
		return apperr.Query(p.current.pos, "expected %s", what)
	}
	return p.advance()
}

// parseExpression := subExpression (("AND"|"OR"|"MINUS") subExpression)*
// left-associative, all three operators at the same precedence, matching
// spec §4.6's set-algebra grammar.
func (p *parser) parseExpression() (Expr, error) {
	left, err := p.parseSubExpression()
	if err != nil {
		return nil, err
	}
	for {
		var op SetOp
		switch p.current.kind {
		case tokenAnd:
			op = SetOpAnd
		case tokenOr:
			op = SetOpOr
		case tokenMinus:
			op = SetOpMinus
		default:
			return left, nil
		}
		if err := p.advance(); err != nil {
			return nil, apperr.Query(p.current.pos, "%s", err)
		}
		right, err := p.parseSubExpression()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseSubExpression() (Expr, error) {
	if p.current.kind == tokenLParen {
		if err := p.advance(); err != nil {
			return nil, apperr.Query(p.current.pos, "%s", err)
		}
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokenRParen, "')'"); err != nil {
			return nil, err
		}
		return e, nil
	}
	return p.parseSimpleExpression()
}

// parseSimpleExpression parses a single focus concept, wildcard or
// membership test, with an optional hierarchy operator and refinement.
func (p *parser) parseSimpleExpression() (Expr, error) {
	if p.current.kind == tokenCaret {
		if err := p.advance(); err != nil {
			return nil, apperr.Query(p.current.pos, "%s", err)
		}
		id, err := p.parseConceptID()
		if err != nil {
			return nil, err
		}
		return &MemberOf{RefsetID: id}, nil
	}

	var op Op
	switch p.current.kind {
	case tokenLTLT:
		op = OpDescendantOrSelf
	case tokenLTBang:
		op = OpChild
	case tokenLT:
		op = OpDescendant
	case tokenGTGT:
		op = OpAncestorOrSelf
	case tokenGTBang:
		op = OpParent
	case tokenGT:
		op = OpAncestor
	}
	if op != OpSelf {
		if err := p.advance(); err != nil {
			return nil, apperr.Query(p.current.pos, "%s", err)
		}
	}

	if p.current.kind == tokenStar {
		if err := p.advance(); err != nil {
			return nil, apperr.Query(p.current.pos, "%s", err)
		}
		if op != OpSelf {
			return nil, apperr.Query(p.current.pos, "wildcard cannot be combined with a hierarchy operator")
		}
		return Wildcard{}, nil
	}

	id, err := p.parseConceptID()
	if err != nil {
		return nil, err
	}
	ref := &ConceptRef{Op: op, ConceptID: id}
	if p.current.kind == tokenColon {
		if err := p.advance(); err != nil {
			return nil, apperr.Query(p.current.pos, "%s", err)
		}
		refinement, err := p.parseRefinement()
		if err != nil {
			return nil, err
		}
		ref.Refinement = refinement
	}
	return ref, nil
}

// parseRefinement := clause ("," clause)*
func (p *parser) parseRefinement() (*Refinement, error) {
	var clauses []RefinementClause
	for {
		clause, err := p.parseRefinementClause()
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
		if p.current.kind != tokenComma {
			break
		}
		if err := p.advance(); err != nil {
			return nil, apperr.Query(p.current.pos, "%s", err)
		}
	}
	return &Refinement{Clauses: clauses}, nil
}

// parseRefinementClause := "{" attribute ("," attribute)* "}" | attribute
func (p *parser) parseRefinementClause() (RefinementClause, error) {
	if p.current.kind == tokenLBrace {
		if err := p.advance(); err != nil {
			return RefinementClause{}, apperr.Query(p.current.pos, "%s", err)
		}
		var attrs []Attribute
		for {
			attr, err := p.parseAttribute()
			if err != nil {
				return RefinementClause{}, err
			}
			attrs = append(attrs, attr)
			if p.current.kind != tokenComma {
				break
			}
			if err := p.advance(); err != nil {
				return RefinementClause{}, apperr.Query(p.current.pos, "%s", err)
			}
		}
		if err := p.expect(tokenRBrace, "'}'"); err != nil {
			return RefinementClause{}, err
		}
		return RefinementClause{Grouped: true, Attributes: attrs}, nil
	}
	attr, err := p.parseAttribute()
	if err != nil {
		return RefinementClause{}, err
	}
	return RefinementClause{Attributes: []Attribute{attr}}, nil
}

func (p *parser) parseAttribute() (Attribute, error) {
	name, err := p.parseSimpleExpression()
	if err != nil {
		return Attribute{}, err
	}
	if err := p.expect(tokenEquals, "'='"); err != nil {
		return Attribute{}, err
	}
	value, err := p.parseSubExpression()
	if err != nil {
		return Attribute{}, err
	}
	return Attribute{Name: name, Value: value}, nil
}

func (p *parser) parseConceptID() (int64, error) {
	if p.current.kind != tokenNumber {
		return 0, apperr.Query(p.current.pos, "expected a concept identifier")
	}
	id, err := strconv.ParseInt(p.current.text, 10, 64)
	if err != nil {
		return 0, apperr.Query(p.current.pos, "invalid concept identifier %q", p.current.text)
	}
	if err := p.advance(); err != nil {
		return 0, apperr.Query(p.current.pos, "%s", err)
	}
	return id, nil
}
