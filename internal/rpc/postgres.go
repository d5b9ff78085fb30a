package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PostgresCaller runs procedures over a pgx pool. Each call executes in its
// own transaction with request.jwt.claims set, so the function can resolve
// the caller through auth.uid()-style helpers.
type PostgresCaller struct {
	pool *pgxpool.Pool
}

// NewPostgresCaller creates a PostgresCaller.
func NewPostgresCaller(pool *pgxpool.Pool) *PostgresCaller {
	return &PostgresCaller{pool: pool}
}

// Call implements Caller.
func (c *PostgresCaller) Call(ctx context.Context, userID, procedure string, args Args) (json.RawMessage, error) {
	query, params, err := buildCall(procedure, args)
	if err != nil {
		return nil, err
	}

	claims, err := json.Marshal(map[string]string{"sub": userID, "role": "authenticated"})
	if err != nil {
		return nil, fmt.Errorf("encode claims: %w", err)
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT set_config('request.jwt.claims', $1, true)`, string(claims)); err != nil {
		return nil, fmt.Errorf("set request claims: %w", err)
	}

	var raw []byte
	if err := tx.QueryRow(ctx, query, params...).Scan(&raw); err != nil {
		return nil, fmt.Errorf("execute %s: %w", procedure, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit %s: %w", procedure, err)
	}

	return raw, nil
}

// buildCall renders a named-notation function call. Argument names are
// sorted so the same Args always produce the same statement.
func buildCall(procedure string, args Args) (string, []any, error) {
	if !identPattern.MatchString(procedure) {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidProcedure, procedure)
	}

	names := make([]string, 0, len(args))
	for name := range args {
		if !identPattern.MatchString(name) {
			return "", nil, fmt.Errorf("%w: argument %q", ErrInvalidProcedure, name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	params := make([]any, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s => $%d", name, i+1)
		params[i] = args[name]
	}

	query := fmt.Sprintf("SELECT to_jsonb(%s(%s))", procedure, strings.Join(parts, ", "))
	return query, params, nil
}
