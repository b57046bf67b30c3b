// Package readthrough memoizes rendered fragments in a cache.Store.
//
// A caller asks for a part or a menu under a context; the package derives a
// deterministic key from that context, serves the stored value on a hit and
// otherwise invokes the producer, stores non-empty output and returns it.
// Cache failures always degrade to "render again", never to an error.
package readthrough
