package ledger

import (
	"fmt"
	"strings"

	"github.com/etnz/ledger/date"
)

// parser consumes one source file and produces a directive stream, an option
// map and a list of structured errors. It is line oriented: a directive
// starts at column zero, its postings and metadata follow indented.
type parser struct {
	filename string
	lines    []string
	i        int // current line index (0-based)

	entries []Directive
	options *Options
	errs    []*Error
}

// ParseString parses a single source text. Includes are returned inside the
// options for the loader to resolve; no I/O happens here.
func ParseString(filename, source string) ([]Directive, *Options, []*Error) {
	p := &parser{
		filename: filename,
		lines:    strings.Split(source, "\n"),
		options:  DefaultOptions(),
	}
	p.options.Filename = filename
	p.run()
	return p.entries, p.options, p.errs
}

func (p *parser) errorf(line int, format string, args ...any) {
	p.errs = append(p.errs, newErrorAt(ParserError, Source{Filename: p.filename, Line: line}, format, args...))
}

// lineno converts the current index to a 1-based line number.
func (p *parser) lineno() int { return p.i + 1 }

func (p *parser) run() {
	for p.i = 0; p.i < len(p.lines); p.i++ {
		line := p.lines[p.i]
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, ";") {
			continue
		}
		if isIndented(line) {
			p.errorf(p.lineno(), "unexpected indented line outside a directive")
			continue
		}
		p.topLevel(line)
	}
}

func isIndented(line string) bool {
	return strings.HasPrefix(line, "  ") || strings.HasPrefix(line, "\t")
}

// topLevel parses one column-zero line and any indented continuation.
func (p *parser) topLevel(line string) {
	lineno := p.lineno()
	tokens, err := scanLine(line)
	if err != nil {
		p.errorf(lineno, "%v", err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	switch tokens[0].kind {
	case tokWord:
		p.pragma(lineno, tokens)
	case tokDate:
		day, err := date.Parse(tokens[0].text)
		if err != nil {
			p.errorf(lineno, "%v", err)
			return
		}
		p.directive(lineno, day, tokens[1:])
	default:
		p.errorf(lineno, "a line must start with a date or a pragma, got %s", tokens[0].kind)
	}
}

// pragma parses "option", "plugin" and "include" lines.
func (p *parser) pragma(lineno int, tokens []token) {
	args := tokens[1:]
	switch tokens[0].text {
	case "option":
		if len(args) != 2 || args[0].kind != tokString || args[1].kind != tokString {
			p.errorf(lineno, `option wants two quoted strings: option "KEY" "VALUE"`)
			return
		}
		if err := p.options.Set(args[0].text, args[1].text); err != nil {
			p.errorf(lineno, "%v", err)
		}
	case "plugin":
		if len(args) == 0 || args[0].kind != tokString || len(args) > 2 ||
			(len(args) == 2 && args[1].kind != tokString) {
			p.errorf(lineno, `plugin wants one or two quoted strings: plugin "NAME" ["CONFIG"]`)
			return
		}
		plugin := Plugin{Name: args[0].text}
		if len(args) == 2 {
			plugin.Config = args[1].text
		}
		p.options.addPlugin(plugin)
	case "include":
		if len(args) != 1 || args[0].kind != tokString {
			p.errorf(lineno, `include wants one quoted string: include "PATH"`)
			return
		}
		p.options.includes = append(p.options.includes, args[0].text)
	default:
		p.errorf(lineno, "unknown pragma %q", tokens[0].text)
	}
}

// directive parses one dated directive. tokens starts after the date.
func (p *parser) directive(lineno int, day date.Date, tokens []token) {
	if len(tokens) == 0 {
		p.errorf(lineno, "a keyword or transaction flag must follow the date")
		return
	}
	base := newBase(day, p.filename, lineno)

	head := tokens[0]
	rest := tokens[1:]

	// A transaction is introduced by a flag ("*", "!", a single capital
	// letter) or the "txn" keyword.
	if flag, ok := transactionFlag(head); ok {
		p.transaction(base, flag, rest)
		return
	}

	if head.kind != tokWord {
		p.errorf(lineno, "expected a directive keyword or flag, got %s", head.kind)
		return
	}
	switch head.text {
	case "open":
		p.open(base, rest)
	case "close":
		p.close(base, rest)
	case "commodity":
		p.commodity(base, rest)
	case "balance":
		p.balance(base, rest)
	case "pad":
		p.pad(base, rest)
	case "note":
		p.accountString(base, rest, KindNote)
	case "document":
		p.accountString(base, rest, KindDocument)
	case "event":
		p.twoStrings(base, rest, KindEvent)
	case "query":
		p.twoStrings(base, rest, KindQuery)
	case "price":
		p.price(base, rest)
	case "custom":
		p.custom(base, rest)
	default:
		p.errorf(lineno, "unknown directive %q", head.text)
	}
}

func transactionFlag(t token) (rune, bool) {
	switch t.kind {
	case tokStar:
		return FlagComplete, true
	case tokFlag:
		return rune(t.text[0]), true
	case tokWord:
		if t.text == "txn" {
			return FlagComplete, true
		}
	case tokCurrency:
		if len(t.text) == 1 {
			return rune(t.text[0]), true
		}
	}
	return 0, false
}

// finish registers the directive and attaches any following metadata lines.
func (p *parser) finish(d Directive) {
	p.meta(d.Meta())
	p.entries = append(p.entries, d)
}

// meta consumes indented "key: value" lines following a directive.
func (p *parser) meta(m *Meta) {
	for p.i+1 < len(p.lines) {
		line := p.lines[p.i+1]
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, ";") {
			p.i++
			continue
		}
		if !isIndented(line) {
			return
		}
		key, value, found := strings.Cut(trimmed, ":")
		if !found || !metaKeyRx.MatchString(key+":") {
			return
		}
		p.i++
		m.KV = append(m.KV, MetaKV{Key: key, Value: unquoteMeta(strings.TrimSpace(value))})
	}
}

// unquoteMeta strips the optional quotes around a metadata value.
func unquoteMeta(value string) string {
	if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
		runes := []rune(value)
		if text, next, err := scanString(runes, 0); err == nil && next == len(runes) {
			return text
		}
	}
	return value
}

func (p *parser) account(lineno int, t token) (string, bool) {
	if t.kind != tokAccount || !IsValidAccount(t.text) {
		p.errorf(lineno, "invalid account name %q", t.text)
		return "", false
	}
	return t.text, true
}

func (p *parser) open(base baseDirective, tokens []token) {
	lineno := base.meta.Line
	if len(tokens) == 0 {
		p.errorf(lineno, "open wants an account name")
		return
	}
	account, ok := p.account(lineno, tokens[0])
	if !ok {
		return
	}
	open := &Open{baseDirective: base, Account: account}
	rest := tokens[1:]
	for len(rest) > 0 {
		switch rest[0].kind {
		case tokCurrency:
			open.Currencies = append(open.Currencies, rest[0].text)
			rest = rest[1:]
			if len(rest) > 0 && rest[0].kind == tokComma {
				rest = rest[1:]
			}
		case tokString:
			method, err := ParseBookingMethod(rest[0].text)
			if err != nil {
				p.errorf(lineno, "%v", err)
				return
			}
			open.Method = &method
			rest = rest[1:]
		default:
			p.errorf(lineno, "unexpected %s in open directive", rest[0].kind)
			return
		}
	}
	p.finish(open)
}

func (p *parser) close(base baseDirective, tokens []token) {
	lineno := base.meta.Line
	if len(tokens) != 1 {
		p.errorf(lineno, "close wants exactly an account name")
		return
	}
	account, ok := p.account(lineno, tokens[0])
	if !ok {
		return
	}
	p.finish(&Close{baseDirective: base, Account: account})
}

func (p *parser) commodity(base baseDirective, tokens []token) {
	lineno := base.meta.Line
	if len(tokens) != 1 || tokens[0].kind != tokCurrency {
		p.errorf(lineno, "commodity wants exactly a currency")
		return
	}
	p.finish(&Commodity{baseDirective: base, Currency: tokens[0].text})
}

func (p *parser) balance(base baseDirective, tokens []token) {
	lineno := base.meta.Line
	if len(tokens) < 3 {
		p.errorf(lineno, "balance wants ACCOUNT NUMBER [~ TOLERANCE] CURRENCY")
		return
	}
	account, ok := p.account(lineno, tokens[0])
	if !ok {
		return
	}
	number, err := ParseNumber(tokens[1].text)
	if tokens[1].kind != tokNumber || err != nil {
		p.errorf(lineno, "invalid balance amount %q", tokens[1].text)
		return
	}
	rest := tokens[2:]
	tolerance := MissingNumber()
	if rest[0].kind == tokTilde {
		if len(rest) < 2 || rest[1].kind != tokNumber {
			p.errorf(lineno, "a tolerance number must follow '~'")
			return
		}
		tolerance, err = ParseNumber(rest[1].text)
		if err != nil {
			p.errorf(lineno, "invalid tolerance %q", rest[1].text)
			return
		}
		rest = rest[2:]
	}
	if len(rest) != 1 || rest[0].kind != tokCurrency {
		p.errorf(lineno, "a currency must end the balance directive")
		return
	}
	p.finish(&Balance{
		baseDirective: base,
		Account:       account,
		Amount:        Amount{Number: number, Currency: rest[0].text},
		Tolerance:     tolerance,
	})
}

func (p *parser) pad(base baseDirective, tokens []token) {
	lineno := base.meta.Line
	if len(tokens) != 2 {
		p.errorf(lineno, "pad wants ACCOUNT SOURCE_ACCOUNT")
		return
	}
	account, ok := p.account(lineno, tokens[0])
	if !ok {
		return
	}
	source, ok := p.account(lineno, tokens[1])
	if !ok {
		return
	}
	p.finish(&Pad{baseDirective: base, Account: account, SourceAccount: source})
}

// accountString parses the "note" and "document" directives: ACCOUNT "TEXT".
func (p *parser) accountString(base baseDirective, tokens []token, kind Kind) {
	lineno := base.meta.Line
	if len(tokens) != 2 || tokens[1].kind != tokString {
		p.errorf(lineno, `%s wants ACCOUNT "TEXT"`, kind)
		return
	}
	account, ok := p.account(lineno, tokens[0])
	if !ok {
		return
	}
	switch kind {
	case KindNote:
		p.finish(&Note{baseDirective: base, Account: account, Comment: tokens[1].text})
	case KindDocument:
		p.finish(&Document{baseDirective: base, Account: account, Filename: tokens[1].text})
	}
}

// twoStrings parses the "event" and "query" directives: "NAME" "VALUE".
func (p *parser) twoStrings(base baseDirective, tokens []token, kind Kind) {
	lineno := base.meta.Line
	if len(tokens) != 2 || tokens[0].kind != tokString || tokens[1].kind != tokString {
		p.errorf(lineno, `%s wants two quoted strings`, kind)
		return
	}
	switch kind {
	case KindEvent:
		p.finish(&Event{baseDirective: base, Name: tokens[0].text, Value: tokens[1].text})
	case KindQuery:
		p.finish(&Query{baseDirective: base, Name: tokens[0].text, Contents: tokens[1].text})
	}
}

func (p *parser) price(base baseDirective, tokens []token) {
	lineno := base.meta.Line
	if len(tokens) != 3 || tokens[0].kind != tokCurrency ||
		tokens[1].kind != tokNumber || tokens[2].kind != tokCurrency {
		p.errorf(lineno, "price wants CURRENCY NUMBER CURRENCY")
		return
	}
	number, err := ParseNumber(tokens[1].text)
	if err != nil {
		p.errorf(lineno, "invalid price %q", tokens[1].text)
		return
	}
	p.finish(&Price{
		baseDirective: base,
		Currency:      tokens[0].text,
		Amount:        Amount{Number: number, Currency: tokens[2].text},
	})
}

func (p *parser) custom(base baseDirective, tokens []token) {
	lineno := base.meta.Line
	if len(tokens) == 0 || tokens[0].kind != tokString {
		p.errorf(lineno, `custom wants a quoted type name first`)
		return
	}
	custom := &Custom{baseDirective: base, Name: tokens[0].text}
	for _, t := range tokens[1:] {
		custom.Values = append(custom.Values, t.text)
	}
	p.finish(custom)
}

// transaction parses the header line then the indented posting and metadata
// lines below it.
func (p *parser) transaction(base baseDirective, flag rune, tokens []token) {
	lineno := base.meta.Line
	txn := &Transaction{baseDirective: base, Flag: flag}

	var strs []string
	for _, t := range tokens {
		switch t.kind {
		case tokString:
			strs = append(strs, t.text)
		case tokTag:
			txn.Tags = append(txn.Tags, t.text)
		case tokLink:
			txn.Links = append(txn.Links, t.text)
		default:
			p.errorf(lineno, "unexpected %s in transaction header", t.kind)
			return
		}
	}
	switch len(strs) {
	case 0:
	case 1:
		txn.Narration = strs[0]
	case 2:
		txn.Payee, txn.Narration = strs[0], strs[1]
	default:
		p.errorf(lineno, "at most two strings (payee, narration) may follow the flag")
		return
	}

	// Transaction metadata comes first, then postings, each with its own
	// optional metadata.
	p.meta(txn.Meta())
	for p.i+1 < len(p.lines) {
		line := p.lines[p.i+1]
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, ";") {
			p.i++
			continue
		}
		if !isIndented(line) {
			break
		}
		p.i++
		posting := p.posting(p.lineno(), trimmed)
		if posting == nil {
			return
		}
		postingMeta := Meta{}
		p.meta(&postingMeta)
		posting.Meta = postingMeta.KV
		txn.Postings = append(txn.Postings, posting)
	}
	p.entries = append(p.entries, txn)
}

// posting parses one indented posting line:
//
//	[FLAG] ACCOUNT [NUMBER CURRENCY] [{COST_SPEC} | {{COST_SPEC}}] [@ PRICE | @@ TOTAL]
func (p *parser) posting(lineno int, line string) *Posting {
	tokens, err := scanLine(line)
	if err != nil {
		p.errorf(lineno, "%v", err)
		return nil
	}
	posting := &Posting{}

	if len(tokens) > 0 {
		if flag, ok := transactionFlag(tokens[0]); ok && len(tokens) > 1 && tokens[1].kind == tokAccount {
			posting.Flag = flag
			tokens = tokens[1:]
		}
	}
	if len(tokens) == 0 {
		p.errorf(lineno, "a posting wants an account name")
		return nil
	}
	account, ok := p.account(lineno, tokens[0])
	if !ok {
		return nil
	}
	posting.Account = account
	tokens = tokens[1:]

	// Units: NUMBER CURRENCY, either of which may be elided.
	if len(tokens) > 0 && tokens[0].kind == tokNumber {
		number, err := ParseNumber(tokens[0].text)
		if err != nil {
			p.errorf(lineno, "invalid number %q", tokens[0].text)
			return nil
		}
		posting.Units.Number = number
		tokens = tokens[1:]
	}
	if len(tokens) > 0 && tokens[0].kind == tokCurrency {
		posting.Units.Currency = tokens[0].text
		tokens = tokens[1:]
	}

	// Cost spec between braces; double braces give a total cost.
	if len(tokens) > 0 && (tokens[0].kind == tokLBrace || tokens[0].kind == tokLLBrace) {
		total := tokens[0].kind == tokLLBrace
		closing := tokRBrace
		if total {
			closing = tokRRBrace
		}
		end := -1
		for j, t := range tokens {
			if t.kind == closing {
				end = j
				break
			}
		}
		if end < 0 {
			p.errorf(lineno, "unclosed cost spec")
			return nil
		}
		spec, err := parseCostSpec(tokens[1:end], total)
		if err != nil {
			p.errorf(lineno, "%v", err)
			return nil
		}
		posting.CostSpec = spec
		tokens = tokens[end+1:]
	}

	// Price annotation.
	if len(tokens) > 0 && (tokens[0].kind == tokAt || tokens[0].kind == tokAtAt) {
		posting.PriceTotal = tokens[0].kind == tokAtAt
		price := &Amount{Number: MissingNumber()}
		tokens = tokens[1:]
		if len(tokens) > 0 && tokens[0].kind == tokNumber {
			number, err := ParseNumber(tokens[0].text)
			if err != nil {
				p.errorf(lineno, "invalid price %q", tokens[0].text)
				return nil
			}
			price.Number = number
			tokens = tokens[1:]
		}
		if len(tokens) > 0 && tokens[0].kind == tokCurrency {
			price.Currency = tokens[0].text
			tokens = tokens[1:]
		}
		posting.Price = price
	}

	if len(tokens) > 0 {
		p.errorf(lineno, "unexpected %s at end of posting", tokens[0].kind)
		return nil
	}
	return posting
}

// parseCostSpec parses the comma-separated contents of a cost spec:
// [NUMBER [# NUMBER] CURRENCY] [, DATE] [, "LABEL"] [, *]
func parseCostSpec(tokens []token, total bool) (*CostSpec, error) {
	spec := &CostSpec{}
	// An empty spec still asks for its number to be resolved: "{}" infers a
	// per-unit cost, "{{}}" a total.
	missing := MissingNumber()
	if total {
		spec.Total = &missing
	} else {
		spec.PerUnit = &missing
	}

	var groups [][]token
	current := []token{}
	for _, t := range tokens {
		if t.kind == tokComma {
			groups = append(groups, current)
			current = nil
			continue
		}
		current = append(current, t)
	}
	if len(current) > 0 || len(groups) > 0 {
		groups = append(groups, current)
	}

	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		switch group[0].kind {
		case tokDate:
			day, err := date.Parse(group[0].text)
			if err != nil || len(group) != 1 {
				return nil, fmt.Errorf("invalid cost date %q", group[0].text)
			}
			spec.Date = day
		case tokString:
			if len(group) != 1 {
				return nil, fmt.Errorf("invalid cost label")
			}
			spec.Label = group[0].text
		case tokStar:
			if len(group) != 1 {
				return nil, fmt.Errorf("invalid merge marker")
			}
			spec.Merge = true
		case tokNumber, tokCurrency, tokHashSep:
			if err := parseCostAmount(spec, group, total); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unexpected %s in cost spec", group[0].kind)
		}
	}
	return spec, nil
}

// parseCostAmount parses the amount part of a cost spec:
// NUMBER CURRENCY, NUMBER # NUMBER CURRENCY, # NUMBER CURRENCY, or CURRENCY.
func parseCostAmount(spec *CostSpec, group []token, total bool) error {
	i := 0
	if i < len(group) && group[i].kind == tokNumber {
		number, err := ParseNumber(group[i].text)
		if err != nil {
			return fmt.Errorf("invalid cost number %q", group[i].text)
		}
		if total {
			spec.Total = &number
		} else {
			spec.PerUnit = &number
		}
		i++
	}
	if i < len(group) && group[i].kind == tokHashSep {
		i++
		if i >= len(group) || group[i].kind != tokNumber {
			return fmt.Errorf("a total cost number must follow '#'")
		}
		number, err := ParseNumber(group[i].text)
		if err != nil {
			return fmt.Errorf("invalid cost number %q", group[i].text)
		}
		spec.Total = &number
		i++
	}
	if i < len(group) && group[i].kind == tokCurrency {
		spec.Currency = group[i].text
		i++
	}
	if i != len(group) {
		return fmt.Errorf("unexpected %s in cost amount", group[i].kind)
	}
	return nil
}
