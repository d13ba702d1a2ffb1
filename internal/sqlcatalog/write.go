package sqlcatalog

import (
	"fmt"
)

// InsertCallable writes a callable and its parameters and decorators in one
// transaction. The callable name must not already exist.
func (c *Catalog) InsertCallable(callable *Callable) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		"INSERT INTO callables (name, kind, return_annotation, signature_hash) VALUES (?, ?, ?, ?)",
		callable.Name, callable.Kind, callable.ReturnAnnotation, SignatureHash(callable),
	)
	if err != nil {
		return fmt.Errorf("insert callable %s: %w", callable.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("callable id: %w", err)
	}

	for i, p := range callable.Parameters {
		if _, err := tx.Exec(
			"INSERT INTO parameters (callable_id, ordinal, name, annotation) VALUES (?, ?, ?, ?)",
			id, i, p.Name, p.Annotation,
		); err != nil {
			return fmt.Errorf("insert parameter %s of %s: %w", p.Name, callable.Name, err)
		}
	}
	for i, d := range callable.Decorators {
		if _, err := tx.Exec(
			"INSERT INTO decorators (callable_id, ordinal, name, arguments) VALUES (?, ?, ?, ?)",
			id, i, d.Name, marshalArguments(d.Arguments),
		); err != nil {
			return fmt.Errorf("insert decorator %s of %s: %w", d.Name, callable.Name, err)
		}
	}

	return tx.Commit()
}

// InsertClass writes a class with its parents and attributes in one
// transaction. The class name must not already exist.
func (c *Catalog) InsertClass(class *Class) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("INSERT INTO classes (name) VALUES (?)", class.Name)
	if err != nil {
		return fmt.Errorf("insert class %s: %w", class.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("class id: %w", err)
	}

	for i, parent := range class.Parents {
		if _, err := tx.Exec(
			"INSERT INTO class_parents (class_id, ordinal, parent) VALUES (?, ?, ?)",
			id, i, parent,
		); err != nil {
			return fmt.Errorf("insert parent %s of %s: %w", parent, class.Name, err)
		}
	}
	for _, attr := range class.Attributes {
		if _, err := tx.Exec(
			"INSERT INTO class_attributes (class_id, name, generated) VALUES (?, ?, ?)",
			id, attr.Name, attr.Generated,
		); err != nil {
			return fmt.Errorf("insert attribute %s of %s: %w", attr.Name, class.Name, err)
		}
	}

	return tx.Commit()
}
