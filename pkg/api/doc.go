// Package api provides the HTTP REST API server for grove.
//
// # Overview
//
// grove records trees, the insects found near them and which insect was seen
// near which tree. The API is built on gorilla/mux and talks to persistence
// only through an injected storage.Repository:
//
//	repo, err := backends.Open(ctx, cfg.Storage)
//	if err != nil {
//		return err
//	}
//	defer repo.Close()
//
//	server := api.NewServer(repo, logrus.StandardLogger(),
//		api.WithMetrics(metrics),
//		api.WithRequestTimeout(30*time.Second),
//	)
//	http.ListenAndServe(":8080", server)
//
// # API Endpoints
//
// Trees:
//
//	GET    /trees                  - List trees, tallest first
//	GET    /trees/{id}             - Get one tree
//	POST   /trees                  - Create {name, location, height, size}
//	PUT    /trees/{id}             - Partial update {id, name, location, height, size}
//	DELETE /trees/{id}             - Delete a tree and its links
//	GET    /trees/search/{value}   - Trees whose name contains value
//
// Insects:
//
//	GET    /insects                - List insects, smallest first
//	GET    /insects/{id}           - Get one insect
//	POST   /insects                - Create {name, description, fact, territory, millimeters}
//	PUT    /insects/{id}           - Partial update
//	DELETE /insects/{id}           - Delete an insect and its links
//	GET    /insects/search/{value} - Insects whose name contains value
//
// Associations:
//
//	GET    /trees-insects          - Trees that have insects, with those insects
//	GET    /insects-trees          - Every insect with its trees
//	POST   /associate-tree-insect  - Resolve or create both sides and link them
//
// # Responses
//
// Reads return the entity or array as-is. Writes return an envelope:
//
//	{"status": "success", "message": "Successfully created new tree", "data": {...}}
//
// Failures are APIError descriptors written by ErrorResponder:
//
//	{"status": "not-found", "message": "Could not find tree 7", "details": "Tree not found"}
//
// Some routes report the kind under "error" instead of "status". Kinds map to
// status codes: not-found is 404, a missing part of the request is 400, an id
// mismatch or malformed body is 400, a duplicate association is 409 and store
// failures are 500. A GET /trees or /insects against an empty table and a
// search with no matches are not-found, not an empty array.
//
// # Partial updates
//
// PUT bodies must repeat the path id; any other id, or none, is rejected
// before the stored row is read. Remaining fields overwrite the stored value
// only when they are present and non-zero, so a client cannot set a field to
// 0 or "" through PUT.
package api
