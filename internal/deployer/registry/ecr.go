// Package registry publishes agent images to the container registry.
package registry

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/charmbracelet/log"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/daemon"
	"github.com/google/go-containerregistry/pkg/v1/remote"
)

// ErrMalformedToken is returned when the registry issues a token that does not
// decode to a username:password pair.
var ErrMalformedToken = errors.New("malformed registry authorization token")

// ECRAPI is the subset of the ECR client used by the publisher.
type ECRAPI interface {
	CreateRepository(ctx context.Context, params *ecr.CreateRepositoryInput, optFns ...func(*ecr.Options)) (*ecr.CreateRepositoryOutput, error)
	DeleteRepository(ctx context.Context, params *ecr.DeleteRepositoryInput, optFns ...func(*ecr.Options)) (*ecr.DeleteRepositoryOutput, error)
	BatchDeleteImage(ctx context.Context, params *ecr.BatchDeleteImageInput, optFns ...func(*ecr.Options)) (*ecr.BatchDeleteImageOutput, error)
	GetAuthorizationToken(ctx context.Context, params *ecr.GetAuthorizationTokenInput, optFns ...func(*ecr.Options)) (*ecr.GetAuthorizationTokenOutput, error)
}

// ImageSource loads a locally built image.
type ImageSource func(ctx context.Context, ref name.Reference) (v1.Image, error)

// DaemonImageSource reads images from the local docker daemon.
func DaemonImageSource(ctx context.Context, ref name.Reference) (v1.Image, error) {
	return daemon.Image(ref, daemon.WithContext(ctx))
}

// Publisher ensures repositories exist and uploads images into them.
type Publisher struct {
	ecr      ECRAPI
	images   ImageSource
	nameOpts []name.Option
	logger   *log.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithImageSource overrides where built images are read from.
func WithImageSource(src ImageSource) Option {
	return func(p *Publisher) {
		p.images = src
	}
}

// WithInsecureRegistry allows pushing over plain HTTP.
func WithInsecureRegistry() Option {
	return func(p *Publisher) {
		p.nameOpts = append(p.nameOpts, name.Insecure)
	}
}

// NewPublisher returns a publisher backed by client.
func NewPublisher(client ECRAPI, logger *log.Logger, opts ...Option) *Publisher {
	p := &Publisher{
		ecr:    client,
		images: DaemonImageSource,
		logger: logger.WithPrefix("registry"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EnsureRepository creates the named repository. An existing repository is
// not an error; created reports whether this call created it.
func (p *Publisher) EnsureRepository(ctx context.Context, repository string) (created bool, err error) {
	_, err = p.ecr.CreateRepository(ctx, &ecr.CreateRepositoryInput{
		RepositoryName: aws.String(repository),
	})
	if err == nil {
		p.logger.Info("created repository", "repository", repository)
		return true, nil
	}
	var exists *ecrtypes.RepositoryAlreadyExistsException
	if errors.As(err, &exists) {
		p.logger.Info("repository already exists", "repository", repository)
		return false, nil
	}
	return false, fmt.Errorf("create repository %s: %w", repository, err)
}

// Credentials obtains short-lived push credentials.
func (p *Publisher) Credentials(ctx context.Context) (authn.Basic, error) {
	out, err := p.ecr.GetAuthorizationToken(ctx, &ecr.GetAuthorizationTokenInput{})
	if err != nil {
		return authn.Basic{}, fmt.Errorf("get authorization token: %w", err)
	}
	if len(out.AuthorizationData) == 0 || out.AuthorizationData[0].AuthorizationToken == nil {
		return authn.Basic{}, fmt.Errorf("%w: no authorization data returned", ErrMalformedToken)
	}
	return DecodeAuthorizationToken(aws.ToString(out.AuthorizationData[0].AuthorizationToken))
}

// DecodeAuthorizationToken decodes a base64 "username:password" token.
func DecodeAuthorizationToken(token string) (authn.Basic, error) {
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return authn.Basic{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok || username == "" || password == "" {
		return authn.Basic{}, ErrMalformedToken
	}
	return authn.Basic{Username: username, Password: password}, nil
}

// Push uploads the locally built image tagged imageURI. A single attempt is
// made; an expired token fails the push.
func (p *Publisher) Push(ctx context.Context, imageURI string, creds authn.Basic) error {
	ref, err := name.ParseReference(imageURI, p.nameOpts...)
	if err != nil {
		return fmt.Errorf("parse image reference %s: %w", imageURI, err)
	}
	img, err := p.images(ctx, ref)
	if err != nil {
		return fmt.Errorf("load image %s: %w", imageURI, err)
	}
	if err := remote.Write(ref, img, remote.WithAuth(&creds), remote.WithContext(ctx)); err != nil {
		return fmt.Errorf("push image %s: %w", imageURI, err)
	}
	p.logger.Info("pushed image", "image", imageURI)
	return nil
}

// DeleteRepository removes a repository and every image in it.
func (p *Publisher) DeleteRepository(ctx context.Context, repository string) error {
	_, err := p.ecr.DeleteRepository(ctx, &ecr.DeleteRepositoryInput{
		RepositoryName: aws.String(repository),
		Force:          true,
	})
	if err != nil {
		var missing *ecrtypes.RepositoryNotFoundException
		if errors.As(err, &missing) {
			return nil
		}
		return fmt.Errorf("delete repository %s: %w", repository, err)
	}
	p.logger.Info("deleted repository", "repository", repository)
	return nil
}

// DeleteImage removes one tag from a repository.
func (p *Publisher) DeleteImage(ctx context.Context, repository, tag string) error {
	out, err := p.ecr.BatchDeleteImage(ctx, &ecr.BatchDeleteImageInput{
		RepositoryName: aws.String(repository),
		ImageIds:       []ecrtypes.ImageIdentifier{{ImageTag: aws.String(tag)}},
	})
	if err != nil {
		return fmt.Errorf("delete image %s:%s: %w", repository, tag, err)
	}
	for _, f := range out.Failures {
		if f.FailureCode == ecrtypes.ImageFailureCodeImageNotFound {
			continue
		}
		return fmt.Errorf("delete image %s:%s: %s", repository, tag, aws.ToString(f.FailureReason))
	}
	p.logger.Info("deleted image", "repository", repository, "tag", tag)
	return nil
}
