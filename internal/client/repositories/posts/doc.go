// Package posts is the client-side persistence layer for posts.
//
// The Repository interface is what the post service and the reconciler
// consume. SQLiteRepository implements it over a dbx.DBTX, so it works the
// same on a *sql.DB or inside a transaction.
//
// Every write is a whole-record replace issued as a single statement, so a
// crash can never leave a row with some fields from an old version and some
// from a new one. Image lists are stored as JSON arrays; timestamps as Unix
// nanoseconds, with 0 meaning "not set".
//
//	repo := posts.NewSQLiteRepository(db)
//	_ = repo.Upsert(ctx, post)
//	all, _ := repo.GetAll(ctx)
//	one, _ := repo.GetByID(ctx, id)
//	_ = repo.DeleteByID(ctx, id)
package posts
