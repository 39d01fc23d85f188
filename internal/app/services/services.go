// Package services holds the application services behind the HTTP
// controllers and the CLI:
//   - CatalogService: catalog search, course details and snapshot refresh
//   - PlanningService: prerequisite resolution, schedule conflicts, eligibility
//   - TranscriptService: transcript upload, ingestion and record access
package services
