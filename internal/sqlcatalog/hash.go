package sqlcatalog

import (
	"fmt"

	"github.com/minio/highwayhash"
)

var hashKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// SignatureHash fingerprints a callable's externally-visible signature:
// name, kind, return annotation, parameters in order, decorators in order.
// Hosts compare fingerprints across indexing runs to invalidate cached
// model dumps.
func SignatureHash(c *Callable) string {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		// Only reachable with a malformed key, which is a constant.
		panic(fmt.Sprintf("sqlcatalog: highwayhash key: %v", err))
	}
	fmt.Fprintf(h, "name:%s\n", c.Name)
	fmt.Fprintf(h, "kind:%s\n", c.Kind)
	fmt.Fprintf(h, "return:%s\n", c.ReturnAnnotation)
	for i, p := range c.Parameters {
		fmt.Fprintf(h, "param:%d:%s:%s\n", i, p.Name, p.Annotation)
	}
	for i, d := range c.Decorators {
		fmt.Fprintf(h, "decorator:%d:%s:%s\n", i, d.Name, marshalArguments(d.Arguments))
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
