// Package store persists race definitions as one file per race.
//
// # Layout
//
// A FileStore owns two directories:
//
//   - the active set (storage.races_dir): races currently in use
//   - the archived set (storage.archived_dir): retired races, hidden from default listings
//
// Each race lives in <id>.<ext> (ext defaults to "yaml"). The file stem is the identifier;
// an "id" key inside a file is ignored. Race.Archived is never stored either: it reflects the
// directory the file was read from.
//
// # Lifecycle
//
//	Create  -> file written to the active set (ErrAlreadyExists if present)
//	Update  -> rewritten in place, or written under a new id and the old file removed
//	Archive -> active -> archived (ErrNotFound, ErrAlreadyExists)
//	Restore -> archived -> active (ErrNotFound, ErrAlreadyExists)
//	Delete  -> removed from the active set, else from the archived set
//
// Mutating operations hold a per-identifier lock for their existence check and write, so two
// requests on the same identifier cannot interleave inside one process. Writes go through a
// temp file and a rename; readers take no lock.
//
// # File Format
//
//	race_id: "625.1"
//	name: Vendée Globe
//	shortName: Vendée Globe
//	boat: Imoca 60
//	start_time: 2024-11-10T12:02:00Z
//	start:
//	  lat: 46.47
//	  lon: -1.79
//	waypoints:
//	  - name: "1"
//	    latlons:
//	      - lat: -34.3
//	        lon: 18.4
//	  - name: end
//	    radius: 5
//	    latlons:
//	      - lat: 46.47
//	        lon: -1.79
//
// # Errors
//
// Operations return *Error wrapping one of ErrNotFound, ErrAlreadyExists,
// ErrIdentifierRequired or ErrInvalidIdentifier; test with errors.Is. Any other error is an
// I/O or encoding failure.
//
// # Identifiers
//
// DeriveID builds an identifier from a race name ("Route du Rhum 2026" -> "route-du-rhum-2026").
// It is used by leg ingestion; direct creation must supply the identifier.
package store
