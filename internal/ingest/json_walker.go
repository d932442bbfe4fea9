package ingest

import (
	"fmt"

	"github.com/ohler55/ojg/jp"
)

// JsonWalker selects records from decoded JSON with a JSONPath expression.
type JsonWalker struct{}

func NewJsonWalker() *JsonWalker {
	return &JsonWalker{}
}

// Records runs selector against root. Every match must be an object:
// segments and points are never bare values. An empty match list is not an
// error, a source may simply hold no points.
func (w *JsonWalker) Records(root any, selector string) ([]map[string]any, error) {
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", selector, err)
	}

	found := x.Get(root)
	out := make([]map[string]any, 0, len(found))
	for i, v := range found {
		rec, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("match %d of '%s' is %T, want object", i, selector, v)
		}
		out = append(out, rec)
	}
	return out, nil
}

var _ Walker = (*JsonWalker)(nil)
