// Package provision creates and inspects the managed services that run agents.
package provision

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apprunner"
	"github.com/aws/aws-sdk-go-v2/service/apprunner/types"
	"github.com/charmbracelet/log"
)

// ErrServiceNotFound is returned when no service has the requested name.
var ErrServiceNotFound = errors.New("service not found")

// AppRunnerAPI is the subset of the App Runner client used here.
type AppRunnerAPI interface {
	CreateService(ctx context.Context, params *apprunner.CreateServiceInput, optFns ...func(*apprunner.Options)) (*apprunner.CreateServiceOutput, error)
	ListServices(ctx context.Context, params *apprunner.ListServicesInput, optFns ...func(*apprunner.Options)) (*apprunner.ListServicesOutput, error)
}

// Secrets are injected into the agent runtime environment.
type Secrets struct {
	APIKey     string
	PrivateKey string
	PublicKey  string
	Password   string
}

func (s Secrets) env() map[string]string {
	return map[string]string{
		"API_KEY":     s.APIKey,
		"PRIVATE_KEY": s.PrivateKey,
		"PUBLIC_KEY":  s.PublicKey,
		"PASSWORD":    s.Password,
	}
}

// ServiceSpec describes the managed service for one agent.
type ServiceSpec struct {
	AgentID       string
	ServiceName   string
	ImageURI      string
	Port          int
	CPU           string
	Memory        string
	AccessRoleARN string
	Secrets       Secrets
}

// Service is a managed service as reported by the provider.
type Service struct {
	Name      string
	ARN       string
	URL       string
	Status    string
	CreatedAt *time.Time
}

// Provisioner creates App Runner services for agents.
type Provisioner struct {
	client AppRunnerAPI
	logger *log.Logger
}

// NewProvisioner returns a provisioner backed by client.
func NewProvisioner(client AppRunnerAPI, logger *log.Logger) *Provisioner {
	return &Provisioner{
		client: client,
		logger: logger.WithPrefix("provision"),
	}
}

// CreateService requests the service and returns once the provider accepts it.
// It does not wait for the service to become ready.
func (p *Provisioner) CreateService(ctx context.Context, spec ServiceSpec) (*Service, error) {
	out, err := p.client.CreateService(ctx, buildCreateServiceInput(spec))
	if err != nil {
		return nil, fmt.Errorf("create service %s: %w", spec.ServiceName, err)
	}
	if out.Service == nil {
		return nil, fmt.Errorf("create service %s: provider returned no service", spec.ServiceName)
	}
	svc := fromService(out.Service)
	p.logger.Info("service creation accepted",
		"service", svc.Name,
		"arn", svc.ARN,
		"url", svc.URL,
		"operation", aws.ToString(out.OperationId),
	)
	return svc, nil
}

func buildCreateServiceInput(spec ServiceSpec) *apprunner.CreateServiceInput {
	return &apprunner.CreateServiceInput{
		ServiceName: aws.String(spec.ServiceName),
		SourceConfiguration: &types.SourceConfiguration{
			ImageRepository: &types.ImageRepository{
				ImageIdentifier:     aws.String(spec.ImageURI),
				ImageRepositoryType: types.ImageRepositoryTypeEcr,
				ImageConfiguration: &types.ImageConfiguration{
					Port:                        aws.String(strconv.Itoa(spec.Port)),
					RuntimeEnvironmentVariables: spec.Secrets.env(),
				},
			},
			AuthenticationConfiguration: &types.AuthenticationConfiguration{
				AccessRoleArn: aws.String(spec.AccessRoleARN),
			},
			AutoDeploymentsEnabled: aws.Bool(true),
		},
		InstanceConfiguration: &types.InstanceConfiguration{
			Cpu:    aws.String(spec.CPU),
			Memory: aws.String(spec.Memory),
		},
		HealthCheckConfiguration: &types.HealthCheckConfiguration{
			Protocol: types.HealthCheckProtocolHttp,
			Path:     aws.String("/"),
		},
		Tags: []types.Tag{
			{Key: aws.String("agent-id"), Value: aws.String(spec.AgentID)},
		},
	}
}

// FindService returns the service with the exact name, or ErrServiceNotFound.
func (p *Provisioner) FindService(ctx context.Context, serviceName string) (*Service, error) {
	services, err := p.ListServices(ctx, serviceName)
	if err != nil {
		return nil, err
	}
	for _, svc := range services {
		if svc.Name == serviceName {
			return svc, nil
		}
	}
	return nil, ErrServiceNotFound
}

// ListServices returns every service whose name starts with prefix.
func (p *Provisioner) ListServices(ctx context.Context, prefix string) ([]*Service, error) {
	var (
		services  []*Service
		nextToken *string
	)
	for {
		out, err := p.client.ListServices(ctx, &apprunner.ListServicesInput{NextToken: nextToken})
		if err != nil {
			return nil, fmt.Errorf("list services: %w", err)
		}
		for _, summary := range out.ServiceSummaryList {
			if !strings.HasPrefix(aws.ToString(summary.ServiceName), prefix) {
				continue
			}
			services = append(services, &Service{
				Name:      aws.ToString(summary.ServiceName),
				ARN:       aws.ToString(summary.ServiceArn),
				URL:       serviceURL(aws.ToString(summary.ServiceUrl)),
				Status:    string(summary.Status),
				CreatedAt: summary.CreatedAt,
			})
		}
		if aws.ToString(out.NextToken) == "" {
			return services, nil
		}
		nextToken = out.NextToken
	}
}

func fromService(s *types.Service) *Service {
	return &Service{
		Name:      aws.ToString(s.ServiceName),
		ARN:       aws.ToString(s.ServiceArn),
		URL:       serviceURL(aws.ToString(s.ServiceUrl)),
		Status:    string(s.Status),
		CreatedAt: s.CreatedAt,
	}
}

// App Runner reports service URLs as bare hostnames.
func serviceURL(host string) string {
	if host == "" || strings.Contains(host, "://") {
		return host
	}
	return "https://" + host
}
