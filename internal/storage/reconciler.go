package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/opsmith/stackctl/internal/config"
	awsplatform "github.com/opsmith/stackctl/internal/platform/aws"
	"github.com/opsmith/stackctl/internal/util/retry"
)

// Handle names the reconciled storage resources. Provisioning uses it to
// configure the state backend.
type Handle struct {
	Bucket       string
	LockTable    string
	SecretPrefix string
	Region       string
}

// Buckets is the bucket lifecycle surface the reconciler needs.
type Buckets interface {
	EnsureBucket(ctx context.Context, name string) error
	BucketExists(ctx context.Context, name string) (bool, error)
	DeleteBucket(ctx context.Context, name string) error
}

// LockTables is the lock table lifecycle surface the reconciler needs.
type LockTables interface {
	EnsureTable(ctx context.Context, name string) error
	TableExists(ctx context.Context, name string) (bool, error)
	DeleteTable(ctx context.Context, name string) error
}

// SecretStore deletes the environment's remote secret namespace.
type SecretStore interface {
	DeleteSecrets(ctx context.Context, prefix string) error
}

// Status reports which storage resources currently exist.
type Status struct {
	BucketExists bool
	TableExists  bool
}

// Reconciler converges storage toward the declared spec. Every operation is
// idempotent: ensuring existing resources and deleting absent ones both
// succeed.
type Reconciler struct {
	spec      config.StorageSpec
	buckets   Buckets
	tables    LockTables
	secrets   SecretStore
	retryOpts []retry.Option
}

// New builds a reconciler over the given storage clients. Transient API
// failures are retried with exponential backoff per the loaded timeouts.
func New(spec config.StorageSpec, buckets Buckets, tables LockTables, secrets SecretStore, timeouts *config.Timeouts) *Reconciler {
	return &Reconciler{
		spec:    spec,
		buckets: buckets,
		tables:  tables,
		secrets: secrets,
		retryOpts: []retry.Option{
			retry.WithMaxRetries(timeouts.RetryMaxAttempts),
			retry.WithInitialDelay(timeouts.RetryInitialDelay),
		},
	}
}

// FromConfig builds a reconciler backed by real AWS clients.
func FromConfig(spec config.StorageSpec, cfg aws.Config, timeouts *config.Timeouts) *Reconciler {
	return New(
		spec,
		awsplatform.NewBucketClient(cfg),
		awsplatform.NewLockTableClient(cfg),
		awsplatform.NewSSMClient(cfg),
		timeouts,
	)
}

// Ensure creates the state bucket (versioned) and the lock table if absent
// and returns a handle describing them. Safe to call on every run.
func (r *Reconciler) Ensure(ctx context.Context) (*Handle, error) {
	err := retry.WithExponentialBackoff(ctx, func() error {
		return r.buckets.EnsureBucket(ctx, r.spec.Bucket)
	}, r.retryOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure state bucket: %w", err)
	}

	err = retry.WithExponentialBackoff(ctx, func() error {
		return r.tables.EnsureTable(ctx, r.spec.LockTable)
	}, r.retryOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure lock table: %w", err)
	}

	return &Handle{
		Bucket:       r.spec.Bucket,
		LockTable:    r.spec.LockTable,
		SecretPrefix: r.spec.SecretPrefix,
		Region:       r.spec.Region,
	}, nil
}

// Check reports which storage resources exist without changing anything.
// Used by doctor and by the destroy summary.
func (r *Reconciler) Check(ctx context.Context) (*Status, error) {
	bucket, err := r.buckets.BucketExists(ctx, r.spec.Bucket)
	if err != nil {
		return nil, err
	}
	table, err := r.tables.TableExists(ctx, r.spec.LockTable)
	if err != nil {
		return nil, err
	}
	return &Status{BucketExists: bucket, TableExists: table}, nil
}

// Delete removes the bucket (and every state version in it), the lock table,
// and the remote secret namespace. Callers gate this behind its own typed
// confirmation; nothing here asks again.
func (r *Reconciler) Delete(ctx context.Context) error {
	err := retry.WithExponentialBackoff(ctx, func() error {
		return r.buckets.DeleteBucket(ctx, r.spec.Bucket)
	}, r.retryOpts...)
	if err != nil {
		return fmt.Errorf("failed to delete state bucket: %w", err)
	}

	err = retry.WithExponentialBackoff(ctx, func() error {
		return r.tables.DeleteTable(ctx, r.spec.LockTable)
	}, r.retryOpts...)
	if err != nil {
		return fmt.Errorf("failed to delete lock table: %w", err)
	}

	if r.spec.SecretPrefix != "" {
		err = retry.WithExponentialBackoff(ctx, func() error {
			return r.secrets.DeleteSecrets(ctx, r.spec.SecretPrefix)
		}, r.retryOpts...)
		if err != nil {
			return fmt.Errorf("failed to delete secret namespace: %w", err)
		}
	}

	return nil
}
