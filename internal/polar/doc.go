// Package polar resolves boat names from the external polar service.
//
// A polar is a boat-performance record; the races service only needs its "id", which is the
// boat label stored on race records created from legs:
//
//	GET <polars.url>?polar_id=12  ->  {"id": "Imoca 60", ...}
//
// Client.Resolve never fails loudly. Transport errors, non-200 responses, undecodable bodies
// and empty ids are logged and reported as ("", false) so leg ingestion can proceed with an
// empty boat. Successful lookups are kept in a Cache for polars.cache_ttl.
package polar
