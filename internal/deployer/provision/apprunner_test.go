package provision

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apprunner"
	"github.com/aws/aws-sdk-go-v2/service/apprunner/types"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAppRunner struct {
	created   []*apprunner.CreateServiceInput
	createErr error
	pages     [][]types.ServiceSummary
}

func (f *fakeAppRunner) CreateService(_ context.Context, in *apprunner.CreateServiceInput, _ ...func(*apprunner.Options)) (*apprunner.CreateServiceOutput, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, in)
	return &apprunner.CreateServiceOutput{
		OperationId: aws.String("op-1"),
		Service: &types.Service{
			ServiceName: in.ServiceName,
			ServiceArn:  aws.String("arn:aws:apprunner:us-east-1:123:service/" + aws.ToString(in.ServiceName) + "/id"),
			ServiceUrl:  aws.String("abc.us-east-1.awsapprunner.com"),
			Status:      types.ServiceStatusOperationInProgress,
		},
	}, nil
}

func (f *fakeAppRunner) ListServices(_ context.Context, in *apprunner.ListServicesInput, _ ...func(*apprunner.Options)) (*apprunner.ListServicesOutput, error) {
	page := 0
	if in.NextToken != nil {
		page = int(aws.ToString(in.NextToken)[0] - '0')
	}
	out := &apprunner.ListServicesOutput{}
	if page < len(f.pages) {
		out.ServiceSummaryList = f.pages[page]
	}
	if page+1 < len(f.pages) {
		out.NextToken = aws.String(string(rune('0' + page + 1)))
	}
	return out, nil
}

func summary(name string) types.ServiceSummary {
	return types.ServiceSummary{
		ServiceName: aws.String(name),
		ServiceArn:  aws.String("arn:" + name),
		ServiceUrl:  aws.String(name + ".awsapprunner.com"),
		Status:      types.ServiceStatusRunning,
	}
}

func TestCreateService(t *testing.T) {
	fake := &fakeAppRunner{}
	p := NewProvisioner(fake, log.New(io.Discard))

	svc, err := p.CreateService(context.Background(), ServiceSpec{
		AgentID:       "abc123",
		ServiceName:   "agent-abc123",
		ImageURI:      "123.dkr.ecr.us-east-1.amazonaws.com/agent-abc123:latest",
		Port:          8080,
		CPU:           "512",
		Memory:        "1024",
		AccessRoleARN: "arn:aws:iam::123:role/AppRunnerECRAccessRole",
		Secrets:       Secrets{APIKey: "k", PrivateKey: "priv", PublicKey: "pub", Password: "pw"},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://abc.us-east-1.awsapprunner.com", svc.URL)
	assert.NotEmpty(t, svc.ARN)

	require.Len(t, fake.created, 1)
	in := fake.created[0]
	img := in.SourceConfiguration.ImageRepository
	assert.Equal(t, "123.dkr.ecr.us-east-1.amazonaws.com/agent-abc123:latest", aws.ToString(img.ImageIdentifier))
	assert.Equal(t, types.ImageRepositoryTypeEcr, img.ImageRepositoryType)
	assert.Equal(t, "8080", aws.ToString(img.ImageConfiguration.Port))
	assert.Equal(t, map[string]string{
		"API_KEY":     "k",
		"PRIVATE_KEY": "priv",
		"PUBLIC_KEY":  "pub",
		"PASSWORD":    "pw",
	}, img.ImageConfiguration.RuntimeEnvironmentVariables)
	assert.Equal(t, "512", aws.ToString(in.InstanceConfiguration.Cpu))
	assert.Equal(t, "1024", aws.ToString(in.InstanceConfiguration.Memory))
	assert.Equal(t, "arn:aws:iam::123:role/AppRunnerECRAccessRole", aws.ToString(in.SourceConfiguration.AuthenticationConfiguration.AccessRoleArn))
	assert.True(t, aws.ToBool(in.SourceConfiguration.AutoDeploymentsEnabled))
}

func TestCreateService_ProviderRejection(t *testing.T) {
	fake := &fakeAppRunner{createErr: errors.New("InvalidRequestException: quota")}
	p := NewProvisioner(fake, log.New(io.Discard))

	_, err := p.CreateService(context.Background(), ServiceSpec{ServiceName: "agent-abc123"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota")
}

func TestListServices_PagesAndFilters(t *testing.T) {
	fake := &fakeAppRunner{pages: [][]types.ServiceSummary{
		{summary("agent-one"), summary("website")},
		{summary("agent-two")},
	}}
	p := NewProvisioner(fake, log.New(io.Discard))

	services, err := p.ListServices(context.Background(), "agent-")
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "agent-one", services[0].Name)
	assert.Equal(t, "agent-two", services[1].Name)
	assert.Equal(t, "https://agent-two.awsapprunner.com", services[1].URL)
}

func TestFindService(t *testing.T) {
	fake := &fakeAppRunner{pages: [][]types.ServiceSummary{{summary("agent-one"), summary("agent-one-b")}}}
	p := NewProvisioner(fake, log.New(io.Discard))

	svc, err := p.FindService(context.Background(), "agent-one")
	require.NoError(t, err)
	assert.Equal(t, "arn:agent-one", svc.ARN)

	_, err = p.FindService(context.Background(), "agent-two")
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestServiceURL(t *testing.T) {
	assert.Equal(t, "", serviceURL(""))
	assert.Equal(t, "https://x.awsapprunner.com", serviceURL("x.awsapprunner.com"))
	assert.Equal(t, "http://x", serviceURL("http://x"))
}
