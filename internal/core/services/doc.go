// Package services holds the retrieval core: the hybrid merger, the
// ingestion and query pipelines, chat sessions and settings.
//
// Services depend only on domain types and driven ports. Index state is
// passed explicitly between calls; a Session owns one state value and
// serialises its mutation.
package services
