// Package pipeline turns a deployment request into a running managed service:
// assemble, describe, build, publish, then provision. Each side effect
// registers a compensation that runs, in reverse, if a later step fails.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-containerregistry/pkg/authn"

	"github.com/anshumantekriwal/kadena-agents/internal/deployer/agentbuild"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/config"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/jobs"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/provision"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/telemetry"
	"github.com/anshumantekriwal/kadena-agents/pkg/models"
)

// Pipeline steps, in execution order.
const (
	StepAssemble   = "assemble"
	StepDescribe   = "descriptor"
	StepBuild      = "build"
	StepPublish    = "publish"
	StepProvision  = "provision"
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeReject  = "rejected"

	// App Runner caps service names at 40 characters.
	maxResourceNameLen = 40

	defaultCompensationTimeout = 2 * time.Minute
)

// Steps lists the pipeline steps in execution order.
var Steps = []string{StepAssemble, StepDescribe, StepBuild, StepPublish, StepProvision}

// ImageBuilder builds and removes local images.
type ImageBuilder interface {
	Build(ctx context.Context, imageName, contextDir, platform string) error
	RemoveImage(ctx context.Context, imageName string) error
}

// ImagePublisher manages registry repositories and uploads images into them.
type ImagePublisher interface {
	EnsureRepository(ctx context.Context, repository string) (bool, error)
	Credentials(ctx context.Context) (authn.Basic, error)
	Push(ctx context.Context, imageURI string, creds authn.Basic) error
	DeleteRepository(ctx context.Context, repository string) error
	DeleteImage(ctx context.Context, repository, tag string) error
}

// ServiceProvisioner creates managed services.
type ServiceProvisioner interface {
	FindService(ctx context.Context, serviceName string) (*provision.Service, error)
	CreateService(ctx context.Context, spec provision.ServiceSpec) (*provision.Service, error)
}

// Options fix everything about a deployment that does not come from the request.
type Options struct {
	NamePrefix    string
	ImageTag      string
	RegistryHost  string
	Platform      string
	BaseImage     string
	Port          int
	CPU           string
	Memory        string
	AccessRoleARN string
	BuildDir      string
	// AgentAPIKey and AgentPassword are shared by every agent runtime.
	AgentAPIKey         string
	AgentPassword       string
	CompensationTimeout time.Duration
}

// OptionsFromConfig derives pipeline options from the service configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		NamePrefix:    cfg.Agent.NamePrefix,
		ImageTag:      cfg.Agent.ImageTag,
		RegistryHost:  cfg.RegistryHost(),
		Platform:      cfg.Agent.Platform,
		BaseImage:     cfg.Agent.BaseImage,
		Port:          cfg.Agent.Port,
		CPU:           cfg.Agent.CPU,
		Memory:        cfg.Agent.Memory,
		AccessRoleARN: cfg.AccessRoleARN(),
		BuildDir:      cfg.Agent.BuildDir,
		AgentAPIKey:   cfg.Agent.APIKey,
		AgentPassword: cfg.Agent.Password,
	}
}

// Deployer runs deployment pipelines. It holds no per-request state, so
// deployments of different agents proceed in parallel.
type Deployer struct {
	generator   *agentbuild.Generator
	builder     ImageBuilder
	publisher   ImagePublisher
	provisioner ServiceProvisioner
	jobs        *jobs.Manager
	metrics     *telemetry.Metrics
	opts        Options
	logger      *log.Logger
}

// NewDeployer wires a deployer. metrics may be nil.
func NewDeployer(
	generator *agentbuild.Generator,
	builder ImageBuilder,
	publisher ImagePublisher,
	provisioner ServiceProvisioner,
	jobManager *jobs.Manager,
	metrics *telemetry.Metrics,
	opts Options,
	logger *log.Logger,
) *Deployer {
	if opts.CompensationTimeout <= 0 {
		opts.CompensationTimeout = defaultCompensationTimeout
	}
	return &Deployer{
		generator:   generator,
		builder:     builder,
		publisher:   publisher,
		provisioner: provisioner,
		jobs:        jobManager,
		metrics:     metrics,
		opts:        opts,
		logger:      logger.WithPrefix("pipeline"),
	}
}

// ResourceName is the repository, service and package name of an agent.
func (d *Deployer) ResourceName(agentID string) string {
	return d.opts.NamePrefix + agentID
}

// ImageURI is the registry reference the agent image is pushed to.
func (d *Deployer) ImageURI(agentID string) string {
	return fmt.Sprintf("%s/%s:%s", d.opts.RegistryHost, d.ResourceName(agentID), d.opts.ImageTag)
}

// Deploy runs the whole pipeline synchronously and returns once the managed
// service creation has been accepted. The service may still be starting.
func (d *Deployer) Deploy(ctx context.Context, req Request) (*models.DeploymentResult, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		d.metrics.RecordDeployment(ctx, outcomeReject, time.Since(start))
		return nil, err
	}
	name := d.ResourceName(req.AgentID)
	if len(name) > maxResourceNameLen {
		d.metrics.RecordDeployment(ctx, outcomeReject, time.Since(start))
		return nil, fmt.Errorf("%w: resource name %q is longer than %d characters", ErrInvalidRequest, name, maxResourceNameLen)
	}

	job, err := d.jobs.CreateJob(req.AgentID, len(Steps))
	if err != nil {
		d.metrics.RecordDeployment(ctx, outcomeReject, time.Since(start))
		return nil, err
	}
	logger := d.logger.With("agent", req.AgentID, "deployment", job.ID)
	trackJob(logger, "start", d.jobs.StartJob(job.ID))
	logger.Info("deployment started")

	result, err := d.run(ctx, job.ID, req, logger)
	if err != nil {
		outcome := outcomeFailure
		if errors.Is(err, ErrAlreadyDeployed) {
			outcome = outcomeReject
		}
		trackJob(logger, "fail", d.jobs.FailJob(job.ID, err.Error()))
		d.metrics.RecordDeployment(ctx, outcome, time.Since(start))
		logger.Error("deployment failed", "err", err, "elapsed", time.Since(start))
		return nil, err
	}

	result.DeploymentID = string(job.ID)
	trackJob(logger, "complete", d.jobs.CompleteJob(job.ID, result))
	d.metrics.RecordDeployment(ctx, outcomeSuccess, time.Since(start))
	logger.Info("deployment accepted", "url", result.AgentURL, "arn", result.ServiceARN, "elapsed", time.Since(start))
	return result, nil
}

func (d *Deployer) run(ctx context.Context, jobID jobs.JobID, req Request, logger *log.Logger) (result *models.DeploymentResult, err error) {
	name := d.ResourceName(req.AgentID)
	imageURI := d.ImageURI(req.AgentID)

	existing, err := d.provisioner.FindService(ctx, name)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: service %s exists at %s", ErrAlreadyDeployed, name, existing.URL)
	case !errors.Is(err, provision.ErrServiceNotFound):
		return nil, fmt.Errorf("check existing service: %w", err)
	}

	var undo saga
	defer func() {
		if err == nil {
			return
		}
		if rbErr := undo.rollback(ctx, d.opts.CompensationTimeout, logger); rbErr != nil {
			err = errors.Join(err, rbErr)
		}
	}()

	var sources agentbuild.Sources
	if err = d.step(jobID, StepAssemble, logger, func() error {
		program, err := d.generator.AssembleProgram(agentbuild.Fragments{
			Baseline: req.BaselineFunction,
			Interval: req.IntervalFunction,
		}, d.opts.Port)
		sources.Program = program
		return err
	}); err != nil {
		return nil, err
	}

	if err = d.step(jobID, StepDescribe, logger, func() error {
		sources.Manifest = agentbuild.NewPackageManifest(name)
		dockerfile, err := d.generator.RenderDockerfile(d.opts.BaseImage, d.opts.Port)
		sources.Dockerfile = dockerfile
		return err
	}); err != nil {
		return nil, err
	}

	if err = d.step(jobID, StepBuild, logger, func() error {
		bc, err := agentbuild.NewBuildContext(d.opts.BuildDir, name, sources)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := bc.Close(); cerr != nil {
				logger.Warn("could not remove build directory", "err", cerr)
			}
		}()
		if err := d.builder.Build(ctx, imageURI, bc.Dir, d.opts.Platform); err != nil {
			return err
		}
		undo.add("remove local image", func(ctx context.Context) error {
			return d.builder.RemoveImage(ctx, imageURI)
		})
		return nil
	}); err != nil {
		return nil, err
	}

	if err = d.step(jobID, StepPublish, logger, func() error {
		created, err := d.publisher.EnsureRepository(ctx, name)
		if err != nil {
			return err
		}
		if created {
			undo.add("delete repository", func(ctx context.Context) error {
				return d.publisher.DeleteRepository(ctx, name)
			})
		}
		creds, err := d.publisher.Credentials(ctx)
		if err != nil {
			return err
		}
		if err := d.publisher.Push(ctx, imageURI, creds); err != nil {
			return err
		}
		if !created {
			undo.add("delete image", func(ctx context.Context) error {
				return d.publisher.DeleteImage(ctx, name, d.opts.ImageTag)
			})
		}
		return nil
	}); err != nil {
		return nil, err
	}

	var svc *provision.Service
	if err = d.step(jobID, StepProvision, logger, func() error {
		created, err := d.provisioner.CreateService(ctx, provision.ServiceSpec{
			AgentID:       req.AgentID,
			ServiceName:   name,
			ImageURI:      imageURI,
			Port:          d.opts.Port,
			CPU:           d.opts.CPU,
			Memory:        d.opts.Memory,
			AccessRoleARN: d.opts.AccessRoleARN,
			Secrets: provision.Secrets{
				APIKey:     d.opts.AgentAPIKey,
				PrivateKey: req.PrivateKey,
				PublicKey:  req.PublicKey,
				Password:   d.opts.AgentPassword,
			},
		})
		svc = created
		return err
	}); err != nil {
		return nil, err
	}

	return &models.DeploymentResult{
		AgentID:    req.AgentID,
		AgentURL:   svc.URL,
		ServiceARN: svc.ARN,
		ImageURI:   imageURI,
	}, nil
}

// step runs fn as the named pipeline step and records its progress.
func (d *Deployer) step(jobID jobs.JobID, name string, logger *log.Logger, fn func() error) error {
	trackJob(logger, "start step "+name, d.jobs.StartStep(jobID, name))
	logger.Info("step started", "step", name)
	started := time.Now()
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	trackJob(logger, "complete step "+name, d.jobs.CompleteStep(jobID, name))
	logger.Info("step completed", "step", name, "elapsed", time.Since(started))
	return nil
}

// trackJob logs a failed job update. Job bookkeeping never fails a deployment.
func trackJob(logger *log.Logger, op string, err error) {
	if err != nil {
		logger.Debug("could not update deployment job", "op", op, "err", err)
	}
}
