package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"shici/pkg/domain"
)

// noRowsCode is the service's "zero rows for a single-object read" error.
const noRowsCode = "PGRST116"

// tableQuery builds one relational operation against a table. It covers the
// small slice of the query protocol this client needs: filters, ordering,
// offset pagination, exact counts, and single-object reads.
type tableQuery struct {
	c      *Client
	table  string
	token  string
	params url.Values
	prefer []string
	single bool
}

func (c *Client) from(table, token string) *tableQuery {
	q := &tableQuery{c: c, table: table, token: token, params: url.Values{}}
	q.params.Set("select", "*")
	return q
}

func (q *tableQuery) selectCols(cols string) *tableQuery {
	q.params.Set("select", cols)
	return q
}

func (q *tableQuery) eq(col, val string) *tableQuery {
	q.params.Set(col, "eq."+val)
	return q
}

// contains filters an array column for rows containing all given values.
func (q *tableQuery) contains(col string, vals []string) *tableQuery {
	q.params.Set(col, "cs.{"+strings.Join(vals, ",")+"}")
	return q
}

// orFilter combines raw filters disjunctively, e.g. "title.ilike.*x*".
func (q *tableQuery) orFilter(filters ...string) *tableQuery {
	q.params.Set("or", "("+strings.Join(filters, ",")+")")
	return q
}

func (q *tableQuery) order(col string, descending bool) *tableQuery {
	dir := ".asc"
	if descending {
		dir = ".desc"
	}
	q.params.Set("order", col+dir)
	return q
}

// page applies offset pagination: offset = (page-1)*limit.
func (q *tableQuery) page(page, limit int) *tableQuery {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = domain.DefaultPageLimit
	}
	q.params.Set("limit", strconv.Itoa(limit))
	q.params.Set("offset", strconv.Itoa((page-1)*limit))
	return q
}

func (q *tableQuery) limit(n int) *tableQuery {
	q.params.Set("limit", strconv.Itoa(n))
	return q
}

func (q *tableQuery) withCount() *tableQuery {
	q.prefer = append(q.prefer, "count=exact")
	return q
}

func (q *tableQuery) asSingle() *tableQuery {
	q.single = true
	return q
}

func (q *tableQuery) headers() http.Header {
	h := http.Header{}
	if len(q.prefer) > 0 {
		h.Set("Prefer", strings.Join(q.prefer, ","))
	}
	if q.single {
		h.Set("Accept", "application/vnd.pgrst.object+json")
	}
	return h
}

func (q *tableQuery) path() string {
	return "/rest/v1/" + q.table
}

// get runs the read and decodes rows into out. total is the exact count when
// withCount was requested, otherwise zero.
func (q *tableQuery) get(ctx context.Context, out any) (total int, err error) {
	resp, err := q.c.send(ctx, http.MethodGet, q.path(), q.params, q.token, q.headers(), nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return 0, &Error{Kind: domain.KindOther, Message: "decode rows: " + err.Error()}
		}
	}
	return parseTotal(resp.Header.Get("Content-Range")), nil
}

// maybeSingle reads at most one row; absence is not an error.
func (q *tableQuery) maybeSingle(ctx context.Context, out any) (found bool, err error) {
	q.asSingle()
	_, err = q.get(ctx, out)
	if err != nil {
		var svcErr *Error
		if errors.As(err, &svcErr) && (svcErr.Code == noRowsCode || svcErr.Status == http.StatusNotAcceptable) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// insert writes payload; when out is non-nil the created row is returned.
func (q *tableQuery) insert(ctx context.Context, payload, out any) error {
	if out != nil {
		q.prefer = append(q.prefer, "return=representation")
		q.asSingle()
	}
	resp, err := q.c.send(ctx, http.MethodPost, q.path(), q.params, q.token, q.headers(), payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: domain.KindOther, Message: "decode inserted row: " + err.Error()}
	}
	return nil
}

// update patches rows matching the applied filters.
func (q *tableQuery) update(ctx context.Context, payload, out any) error {
	if out != nil {
		q.prefer = append(q.prefer, "return=representation")
		q.asSingle()
	}
	resp, err := q.c.send(ctx, http.MethodPatch, q.path(), q.params, q.token, q.headers(), payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: domain.KindOther, Message: "decode updated row: " + err.Error()}
	}
	return nil
}

// delete removes rows matching the applied filters.
func (q *tableQuery) delete(ctx context.Context) error {
	resp, err := q.c.send(ctx, http.MethodDelete, q.path(), q.params, q.token, q.headers(), nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// parseTotal extracts the total from a Content-Range header like "0-9/42".
func parseTotal(contentRange string) int {
	idx := strings.LastIndex(contentRange, "/")
	if idx < 0 {
		return 0
	}
	total, err := strconv.Atoi(contentRange[idx+1:])
	if err != nil {
		return 0
	}
	return total
}
