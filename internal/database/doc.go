// Package database provides the data access layer for the export service.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go  # Connection setup and migrations
//	├── users/       # User accounts
//	├── content/     # Read-only lesson and quiz access
//	├── queue/       # Export retry queue with leased claims
//	├── ledger/      # Append-only export ledger
//	├── failures/    # Dead-letter records for abandoned exports
//	└── audit/       # Audit events
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./eztutor.db", logger)
//
//	queueRepo := queue.NewRepository(db.DB)
//	ledgerRepo := ledger.NewRepository(db.DB)
//
//	item, err := queueRepo.Claim(ctx, owner, now, lease)
//
// All mutations are single-row statements. Nothing here opens a
// transaction that spans a provider call.
package database
