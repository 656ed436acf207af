package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEC2 struct {
	instances    []types.Instance
	describeErr  error
	terminateErr error

	filters    []types.Filter
	terminated []string
}

func (f *fakeEC2) DescribeInstances(_ context.Context, params *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	f.filters = params.Filters
	return &ec2.DescribeInstancesOutput{
		Reservations: []types.Reservation{{Instances: f.instances}},
	}, nil
}

func (f *fakeEC2) TerminateInstances(_ context.Context, params *ec2.TerminateInstancesInput, _ ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error) {
	if f.terminateErr != nil {
		return nil, f.terminateErr
	}
	f.terminated = params.InstanceIds
	return &ec2.TerminateInstancesOutput{}, nil
}

func instance(id, name string, state types.InstanceStateName) types.Instance {
	return types.Instance{
		InstanceId: aws.String(id),
		State:      &types.InstanceState{Name: state},
		Tags:       []types.Tag{{Key: aws.String("Name"), Value: aws.String(name)}},
	}
}

func TestFindByTags_FiltersTerminated(t *testing.T) {
	t.Parallel()
	fake := &fakeEC2{
		instances: []types.Instance{
			instance("i-1", "staging-ci", types.InstanceStateNameRunning),
			instance("i-2", "staging-app", types.InstanceStateNameStopped),
			instance("i-3", "staging-old", types.InstanceStateNameTerminated),
		},
	}
	client := NewComputeClientWithAPI(fake)

	found, err := client.FindByTags(context.Background(), map[string]string{"environment": "staging"})
	require.NoError(t, err)

	require.Len(t, found, 2)
	assert.Equal(t, "i-1", found[0].ID)
	assert.Equal(t, "staging-ci", found[0].Name)
	assert.Equal(t, "running", found[0].State)

	require.Len(t, fake.filters, 1)
	assert.Equal(t, "tag:environment", aws.ToString(fake.filters[0].Name))
}

func TestFindByTags_Error(t *testing.T) {
	t.Parallel()
	client := NewComputeClientWithAPI(&fakeEC2{describeErr: errors.New("denied")})

	_, err := client.FindByTags(context.Background(), map[string]string{"k": "v"})
	require.Error(t, err)
}

func TestTerminate(t *testing.T) {
	t.Parallel()
	fake := &fakeEC2{}
	client := NewComputeClientWithAPI(fake)

	require.NoError(t, client.Terminate(context.Background(), []string{"i-1", "i-2"}))
	assert.Equal(t, []string{"i-1", "i-2"}, fake.terminated)

	// No-op on empty input.
	require.NoError(t, client.Terminate(context.Background(), nil))
}
