package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// Instance describes one compute instance found by a tag sweep.
type Instance struct {
	ID    string
	Name  string
	State string
}

// EC2API is the subset of the EC2 client the orphan sweep needs.
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	TerminateInstances(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
}

// ComputeClient finds and terminates instances by tag. It backs the
// operator-invoked `stackctl cleanup` sweep and is never called from the
// up/down paths.
type ComputeClient struct {
	api EC2API
}

// NewComputeClient creates a compute client from an SDK configuration.
func NewComputeClient(cfg aws.Config) *ComputeClient {
	return &ComputeClient{api: ec2.NewFromConfig(cfg)}
}

// NewComputeClientWithAPI allows injecting a fake API in tests.
func NewComputeClientWithAPI(api EC2API) *ComputeClient {
	return &ComputeClient{api: api}
}

// FindByTags returns non-terminated instances matching every given tag.
func (c *ComputeClient) FindByTags(ctx context.Context, tags map[string]string) ([]Instance, error) {
	var filters []types.Filter
	for key, value := range tags {
		filters = append(filters, types.Filter{
			Name:   aws.String("tag:" + key),
			Values: []string{value},
		})
	}

	var instances []Instance
	paginator := ec2.NewDescribeInstancesPaginator(c.api, &ec2.DescribeInstancesInput{Filters: filters})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe instances: %w", err)
		}
		for _, reservation := range page.Reservations {
			for _, inst := range reservation.Instances {
				if inst.State != nil && inst.State.Name == types.InstanceStateNameTerminated {
					continue
				}
				instances = append(instances, Instance{
					ID:    aws.ToString(inst.InstanceId),
					Name:  instanceName(inst),
					State: string(inst.State.Name),
				})
			}
		}
	}

	return instances, nil
}

// Terminate requests termination of the given instances.
func (c *ComputeClient) Terminate(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := c.api.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: ids})
	if err != nil {
		return fmt.Errorf("failed to terminate instances: %w", err)
	}
	return nil
}

func instanceName(inst types.Instance) string {
	for _, tag := range inst.Tags {
		if aws.ToString(tag.Key) == "Name" {
			return aws.ToString(tag.Value)
		}
	}
	return ""
}
