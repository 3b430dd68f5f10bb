// Package voicelink provides the backend library for a social voice
// messaging service.
//
// It covers account profiles with login-lockout tracking, direct voice
// messages between accounts, per-chat summaries (last message plus unread
// count), and abuse reports. All functionality is exposed via interfaces,
// with pluggable document storage backends (MongoDB, PostgreSQL, in-memory)
// and pluggable media storage (S3, GCS, plus an on-disk cache decorator).
//
// # Basic Usage
//
//	// Create in-memory store for testing
//	store := memory.New()
//
//	// Create the service
//	svc, err := voicelink.NewService(
//	    voicelink.WithStore(store),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Connect initializes indexes/schema
//	if err := svc.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close(ctx)
//
//	// Record a failed login; three in a row lock the account
//	state, err := svc.RecordFailure(ctx, "user123")
//
//	// Send a message whose media was already uploaded
//	msg, err := svc.Send(ctx, "user123", "user456", "s3://bucket/voice/clip.m4a")
//
// # Ordered Queries
//
// Listing operations ask the store for index-ordered results first. When the
// store reports the ordering index is missing, the operation transparently
// falls back to an unordered scan sorted in memory, logging a warning. Any
// other store error propagates to the caller unchanged.
//
// # Storage Backends
//
// The docstore package defines the document store contract, with
// implementations under:
//   - MongoDB (docstore/mongo) - accepts *mongo.Client
//   - PostgreSQL (docstore/postgres) - accepts *sql.DB
//   - In-memory (docstore/memory) - for testing
//
// # Media Storage
//
// The media package defines blob storage for voice payloads:
//   - S3 (media/s3) - AWS S3 or any S3-compatible endpoint
//   - GCS (media/gcs) - Google Cloud Storage
//   - Cached (media/cached) - on-disk read cache around another store
package voicelink
