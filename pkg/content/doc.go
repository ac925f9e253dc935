// Package content builds user-facing notification content from domain events.
//
// A Builder maps an event name plus a flat parameter map to a Content value
// (title, body and a data payload for client-side routing). Building is a
// total operation: unknown events fall back to a generic template, missing
// parameters render as empty strings, and Build never returns an error or
// panics. This keeps the delivery pipeline free of content-related failure
// paths.
//
// Templates live in YAML catalogs keyed by locale:
//
//	en:
//	  like:
//	    title: "New Like"
//	    body: "{actor} liked your post"
//
// A default English catalog is embedded. Additional locales can be merged in
// with WithCatalogData, and the builder picks the best matching locale for a
// BCP-47 tag using golang.org/x/text language matching.
//
// Basic usage:
//
//	builder := content.NewBuilder()
//	c := builder.Build(content.EventLike, map[string]string{"actor": "jane"})
//	// c.Title == "New Like", c.Body == "jane liked your post"
package content
