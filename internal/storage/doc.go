// Package storage reconciles the durable out-of-band resources an environment
// depends on: the S3 state bucket, the DynamoDB lock table, and the SSM
// secret namespace. Their lifecycle is independent of the compute fleet —
// destroying an environment leaves them in place unless storage deletion is
// confirmed separately.
package storage
