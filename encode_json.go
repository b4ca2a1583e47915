package ledger

import (
	"encoding/json"
	"fmt"
	"io"
)

// EncodeEntries writes the directive stream as a JSON array, one object per
// directive, in stream order.
func EncodeEntries(w io.Writer, entries []Directive) error {
	enc := json.NewEncoder(w)
	raw := make([]json.RawMessage, 0, len(entries))
	for _, entry := range entries {
		b, err := encodeEntry(entry)
		if err != nil {
			return err
		}
		raw = append(raw, b)
	}
	return enc.Encode(raw)
}

func encodeEntry(entry Directive) ([]byte, error) {
	var w jsonObjectWriter
	w.Append("kind", entry.What())
	w.Append("date", entry.When())

	switch v := entry.(type) {
	case *Open:
		w.Append("account", v.Account)
		w.Optional("currencies", v.Currencies)
		if v.Method != nil {
			w.Append("booking", v.Method.String())
		}
	case *Close:
		w.Append("account", v.Account)
	case *Commodity:
		w.Append("currency", v.Currency)
	case *Balance:
		w.Append("account", v.Account)
		w.Append("amount", v.Amount)
		if !v.Tolerance.IsMissing() {
			w.Append("tolerance", v.Tolerance)
		}
		if v.Diff != nil {
			w.Append("diff", v.Diff)
		}
	case *Pad:
		w.Append("account", v.Account)
		w.Append("source", v.SourceAccount)
	case *Note:
		w.Append("account", v.Account)
		w.Append("comment", v.Comment)
	case *Document:
		w.Append("account", v.Account)
		w.Append("filename", v.Filename)
	case *Event:
		w.Append("name", v.Name)
		w.Append("value", v.Value)
	case *Query:
		w.Append("name", v.Name)
		w.Append("query", v.Contents)
	case *Price:
		w.Append("currency", v.Currency)
		w.Append("amount", v.Amount)
	case *Custom:
		w.Append("name", v.Name)
		w.Optional("values", v.Values)
	case *Transaction:
		w.Append("flag", string(v.Flag))
		w.Optional("payee", v.Payee)
		w.Optional("narration", v.Narration)
		w.Optional("tags", v.Tags)
		w.Optional("links", v.Links)
		postings := make([]json.RawMessage, 0, len(v.Postings))
		for _, p := range v.Postings {
			b, err := encodePosting(p)
			if err != nil {
				return nil, err
			}
			postings = append(postings, b)
		}
		w.Append("postings", postings)
	default:
		return nil, fmt.Errorf("cannot encode directive of kind %q", entry.What())
	}

	if kv := entry.Meta().KV; len(kv) > 0 {
		var meta jsonObjectWriter
		for _, m := range kv {
			meta.Append(m.Key, m.Value)
		}
		b, err := meta.MarshalJSON()
		if err != nil {
			return nil, err
		}
		w.Append("meta", json.RawMessage(b))
	}
	return w.MarshalJSON()
}

func encodePosting(p *Posting) ([]byte, error) {
	var w jsonObjectWriter
	w.Append("account", p.Account)
	w.Append("units", p.Units)
	if p.Cost != nil {
		var c jsonObjectWriter
		c.Append("number", p.Cost.Number)
		c.Append("currency", p.Cost.Currency)
		c.Append("date", p.Cost.Date)
		c.Optional("label", p.Cost.Label)
		b, err := c.MarshalJSON()
		if err != nil {
			return nil, err
		}
		w.Append("cost", json.RawMessage(b))
	}
	if p.Price != nil {
		w.Append("price", p.Price)
	}
	if p.Flag != 0 {
		w.Append("flag", string(p.Flag))
	}
	return w.MarshalJSON()
}
