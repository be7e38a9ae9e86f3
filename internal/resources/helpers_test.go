package resources

import (
	"context"

	"snowbridge/internal/normalize"
)

// fakeExec is a scripted executor: responses keys are exact statement
// texts. Unscripted statements acknowledge with the generic success row.
type fakeExec struct {
	responses map[string][]normalize.Row
	errs      map[string]error
	queries   []string
}

func (f *fakeExec) Execute(_ context.Context, query string, desired ...string) ([]normalize.Row, error) {
	f.queries = append(f.queries, query)
	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	if rows, ok := f.responses[query]; ok {
		if len(desired) > 0 {
			filtered := make([]normalize.Row, len(rows))
			for i, row := range rows {
				filtered[i] = normalize.Filter(row, desired)
			}
			return filtered, nil
		}
		return rows, nil
	}
	return []normalize.Row{{"description": "successful"}}, nil
}
