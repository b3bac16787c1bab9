// Package admin implements component C15, the in-process operator surface
// over the ontology resolver (C3), writer coordinator (C8), and submission
// indexer (C9): rebuilding the ontology, holding/releasing a writer
// snapshot for external backup, and polling a submission's task status.
package admin

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/biohub/subindex/indexer"
	"github.com/biohub/subindex/internal/healthserver"
	"github.com/biohub/subindex/internal/metrics"
	"github.com/biohub/subindex/ontology"
)

// SnapshotHolder is the subset of *writer.Coordinator the admin surface
// needs for snapshot-backed backups.
type SnapshotHolder interface {
	HoldSnapshot() error
	ReleaseSnapshot() error
}

// Operations wires the collaborators an operator-facing control plane calls
// through; every method here is safe to call concurrently with the normal
// indexing pipeline.
type Operations struct {
	Resolver  *ontology.Resolver
	Snapshots SnapshotHolder
	Indexer   *indexer.Indexer
	Metrics   *metrics.Collectors
}

// RebuildOntology forces a fresh OWL load-and-parse and atomically swaps it
// in (spec §4.3 rebuild()). In-flight readers keep using the model they
// already took a reference to.
func (o *Operations) RebuildOntology() error {
	if o.Resolver == nil {
		return fmt.Errorf("admin: no ontology resolver configured")
	}
	if err := o.Resolver.Rebuild(); err != nil {
		return fmt.Errorf("rebuilding ontology: %w", err)
	}
	return nil
}

// HoldSnapshot pins the writer's current on-disk state so an external
// backup tool can copy a consistent view; callers must pair this with
// ReleaseSnapshot once the copy completes.
func (o *Operations) HoldSnapshot() error {
	if o.Snapshots == nil {
		return fmt.Errorf("admin: no snapshot holder configured")
	}
	return o.Snapshots.HoldSnapshot()
}

// ReleaseSnapshot undoes HoldSnapshot.
func (o *Operations) ReleaseSnapshot() error {
	if o.Snapshots == nil {
		return fmt.Errorf("admin: no snapshot holder configured")
	}
	return o.Snapshots.ReleaseSnapshot()
}

// TaskStatus polls the indexer's in-flight task table for accession,
// returning indexer.StateNotFound when nothing is queued or running for it.
func (o *Operations) TaskStatus(accession string) indexer.TaskStatus {
	if o.Indexer == nil {
		return indexer.TaskStatus{Accession: accession, State: indexer.StateNotFound}
	}
	return o.Indexer.Status(accession)
}

// Ready reports whether this Operations has enough collaborators wired to
// serve traffic: an ontology resolver and a submission indexer. Snapshots
// is deliberately excluded — a backup tool may never be configured in a
// given deployment without that meaning the pipeline itself isn't ready.
func (o *Operations) Ready() bool {
	return o.Resolver != nil && o.Indexer != nil
}

// StartHealthServer exposes /healthz, /readyz and /metrics on port via the
// shared health/metrics server. Ready backs /readyz; if Metrics is
// configured it is registered into prometheus.DefaultRegisterer first,
// since that is the registry healthserver's promhttp.Handler() serves.
func (o *Operations) StartHealthServer(logger *zap.Logger, port int) {
	if o.Metrics != nil {
		o.Metrics.MustRegister(prometheus.DefaultRegisterer)
	}
	healthserver.Start(logger, port, o.Ready)
}
