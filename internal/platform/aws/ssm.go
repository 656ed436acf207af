package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// deleteBatchSize is the SSM DeleteParameters per-call limit.
const deleteBatchSize = 10

// SSMAPI is the subset of the SSM client the secret store needs.
type SSMAPI interface {
	GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
	DeleteParameters(ctx context.Context, params *ssm.DeleteParametersInput, optFns ...func(*ssm.Options)) (*ssm.DeleteParametersOutput, error)
}

// SSMClient reads and deletes secrets under a hierarchical Parameter Store
// prefix. stackctl only ever reads secret values; writing initial values is a
// setup-time concern outside this tool.
type SSMClient struct {
	api SSMAPI
}

// NewSSMClient creates an SSM client from an SDK configuration.
func NewSSMClient(cfg aws.Config) *SSMClient {
	return &SSMClient{api: ssm.NewFromConfig(cfg)}
}

// NewSSMClientWithAPI allows injecting a fake API in tests.
func NewSSMClientWithAPI(api SSMAPI) *SSMClient {
	return &SSMClient{api: api}
}

// ReadSecrets returns all parameters below prefix, decrypted, keyed by their
// name relative to the prefix ("/stackctl/staging/admin_password" becomes
// "admin_password").
func (c *SSMClient) ReadSecrets(ctx context.Context, prefix string) (map[string]string, error) {
	prefix = strings.TrimSuffix(prefix, "/")
	values := make(map[string]string)

	var nextToken *string
	for {
		out, err := c.api.GetParametersByPath(ctx, &ssm.GetParametersByPathInput{
			Path:           aws.String(prefix),
			Recursive:      aws.Bool(true),
			WithDecryption: aws.Bool(true),
			NextToken:      nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read parameters under %s: %w", prefix, err)
		}

		for _, p := range out.Parameters {
			if p.Name == nil || p.Value == nil {
				continue
			}
			key := strings.TrimPrefix(*p.Name, prefix+"/")
			values[key] = *p.Value
		}

		if out.NextToken == nil {
			return values, nil
		}
		nextToken = out.NextToken
	}
}

// DeleteSecrets removes every parameter below prefix. Used only by the
// storage teardown path after its own confirmation.
func (c *SSMClient) DeleteSecrets(ctx context.Context, prefix string) error {
	prefix = strings.TrimSuffix(prefix, "/")

	var names []string
	var nextToken *string
	for {
		out, err := c.api.GetParametersByPath(ctx, &ssm.GetParametersByPathInput{
			Path:      aws.String(prefix),
			Recursive: aws.Bool(true),
			NextToken: nextToken,
		})
		if err != nil {
			return fmt.Errorf("failed to list parameters under %s: %w", prefix, err)
		}
		for _, p := range out.Parameters {
			if p.Name != nil {
				names = append(names, *p.Name)
			}
		}
		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	for start := 0; start < len(names); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(names))
		_, err := c.api.DeleteParameters(ctx, &ssm.DeleteParametersInput{Names: names[start:end]})
		if err != nil {
			return fmt.Errorf("failed to delete parameters under %s: %w", prefix, err)
		}
	}

	return nil
}
