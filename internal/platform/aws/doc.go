// Package aws provides thin clients over the AWS services stackctl touches
// directly: S3 for the remote state bucket, DynamoDB for the state lock
// table, SSM Parameter Store as the remote secret store, and EC2 for the
// operator-invoked orphan sweep.
//
// Terraform itself reads and writes the state backend; these clients only
// manage the backend's lifecycle and the secrets namespace.
package aws
