package sqlcatalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jward/quarry"
	"github.com/minio/highwayhash"
)

// Catalog implements quarry.Catalog; database/sql connections are safe for
// concurrent use, so workers may resolve through one Catalog without
// synchronizing.
var _ quarry.Catalog = (*Catalog)(nil)

// ResolveCallable returns the signature snapshot for name, or (nil, nil)
// when no callable with that name is recorded.
func (c *Catalog) ResolveCallable(ctx context.Context, name string) (*quarry.CallableSignature, error) {
	var (
		id               int64
		returnAnnotation sql.NullString
	)
	err := c.db.QueryRowContext(ctx,
		"SELECT id, return_annotation FROM callables WHERE name = ?", name,
	).Scan(&id, &returnAnnotation)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup callable %s: %w", name, err)
	}

	sig := &quarry.CallableSignature{ReturnAnnotation: returnAnnotation.String}

	rows, err := c.db.QueryContext(ctx,
		"SELECT ordinal, name, annotation FROM parameters WHERE callable_id = ? ORDER BY ordinal", id,
	)
	if err != nil {
		return nil, fmt.Errorf("parameters of %s: %w", name, err)
	}
	for rows.Next() {
		var (
			p          quarry.Parameter
			annotation sql.NullString
		)
		if err := rows.Scan(&p.Position, &p.Name, &annotation); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan parameter of %s: %w", name, err)
		}
		p.Annotation = annotation.String
		sig.Parameters = append(sig.Parameters, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("parameters of %s: %w", name, err)
	}

	rows, err = c.db.QueryContext(ctx,
		"SELECT name, arguments FROM decorators WHERE callable_id = ? ORDER BY ordinal", id,
	)
	if err != nil {
		return nil, fmt.Errorf("decorators of %s: %w", name, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			d    quarry.Decorator
			args sql.NullString
		)
		if err := rows.Scan(&d.Name, &args); err != nil {
			return nil, fmt.Errorf("scan decorator of %s: %w", name, err)
		}
		d.Arguments = unmarshalArguments(args.String)
		sig.Decorators = append(sig.Decorators, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("decorators of %s: %w", name, err)
	}

	return sig, nil
}

// ImmediateParents returns the declared direct parents of class, in
// declaration order. Unknown classes have no parents.
func (c *Catalog) ImmediateParents(ctx context.Context, class string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT p.parent FROM class_parents p
		 JOIN classes c ON c.id = p.class_id
		 WHERE c.name = ? ORDER BY p.ordinal`, class,
	)
	if err != nil {
		return nil, fmt.Errorf("parents of %s: %w", class, err)
	}
	defer rows.Close()

	var parents []string
	for rows.Next() {
		var parent string
		if err := rows.Scan(&parent); err != nil {
			return nil, fmt.Errorf("scan parent of %s: %w", class, err)
		}
		parents = append(parents, parent)
	}
	return parents, rows.Err()
}

// AllClasses enumerates every declared class, ordered by name.
func (c *Catalog) AllClasses(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT name FROM classes ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	defer rows.Close()

	var classes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, name)
	}
	return classes, rows.Err()
}

// AttributeNames returns the attribute names of class. Without
// includeGenerated, constructor-assigned attributes are filtered out. A
// name recorded both ways yields one entry.
func (c *Catalog) AttributeNames(ctx context.Context, class string, includeGenerated bool) (map[string]bool, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT DISTINCT a.name FROM class_attributes a
		 JOIN classes c ON c.id = a.class_id
		 WHERE c.name = ? AND (a.generated = 0 OR ?)`, class, includeGenerated,
	)
	if err != nil {
		return nil, fmt.Errorf("attributes of %s: %w", class, err)
	}
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan attribute of %s: %w", class, err)
		}
		names[name] = true
	}
	return names, rows.Err()
}

// Callables enumerates every callable identity in the catalog, ordered by
// name. This is the callable universe a full analysis run feeds the engine.
func (c *Catalog) Callables(ctx context.Context) ([]quarry.Callable, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT name, kind FROM callables ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list callables: %w", err)
	}
	defer rows.Close()

	var callables []quarry.Callable
	for rows.Next() {
		var name, kind string
		if err := rows.Scan(&name, &kind); err != nil {
			return nil, fmt.Errorf("scan callable: %w", err)
		}
		targetKind := quarry.TargetFunction
		if kind == KindMethod {
			targetKind = quarry.TargetMethod
		}
		callables = append(callables, quarry.Callable{Name: name, Kind: targetKind})
	}
	return callables, rows.Err()
}

// Stats summarizes the catalog contents.
type Stats struct {
	Callables   int64
	Parameters  int64
	Decorators  int64
	Classes     int64
	Attributes  int64
	Fingerprint string
}

// CatalogStats returns row counts per table plus the catalog fingerprint.
func (c *Catalog) CatalogStats(ctx context.Context) (Stats, error) {
	var stats Stats
	counts := []struct {
		table string
		dst   *int64
	}{
		{"callables", &stats.Callables},
		{"parameters", &stats.Parameters},
		{"decorators", &stats.Decorators},
		{"classes", &stats.Classes},
		{"class_attributes", &stats.Attributes},
	}
	for _, count := range counts {
		if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+count.table).Scan(count.dst); err != nil {
			return Stats{}, fmt.Errorf("count %s: %w", count.table, err)
		}
	}
	fingerprint, err := c.Fingerprint(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats.Fingerprint = fingerprint
	return stats, nil
}

// Fingerprint hashes every callable's signature hash in name order. Two
// catalogs with the same fingerprint resolve identical signatures, so hosts
// can reuse cached model dumps across identical catalogs.
func (c *Catalog) Fingerprint(ctx context.Context) (string, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT signature_hash FROM callables ORDER BY name",
	)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	defer rows.Close()

	h, err := highwayhash.New64(hashKey)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	for rows.Next() {
		var hash sql.NullString
		if err := rows.Scan(&hash); err != nil {
			return "", fmt.Errorf("fingerprint: scan: %w", err)
		}
		fmt.Fprintf(h, "%s\n", hash.String)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
