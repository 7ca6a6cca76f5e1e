package cli

import (
	"context"
	"fmt"

	"github.com/ralt/caryatid/internal/box"
	"github.com/ralt/caryatid/internal/models"
	"github.com/ralt/caryatid/internal/publisher"
	"github.com/ralt/caryatid/internal/signer"
	"github.com/ralt/caryatid/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// NewPublishCmd creates the publish command
func NewPublishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish NAME DESCRIPTION VERSION BOXFILE",
		Short: "Upload a box and add it to its catalog",
		Long: `Hashes the box file, uploads it to boxes/NAME_VERSION_PROVIDER.box below
the destination and records it in NAME.json at the destination root.

The provider is read from the box metadata.json when --provider is not given,
or from file names such as NAME.PROVIDER.box.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := loadViper(cmd)
			if err != nil {
				return err
			}

			config := models.PublishConfig{
				Name:             args[0],
				Description:      args[1],
				Version:          args[2],
				BoxPath:          args[3],
				Provider:         v.GetString("provider"),
				BaseURL:          v.GetString("base-url"),
				ChecksumType:     v.GetString("checksum-type"),
				ContentType:      v.GetString("content-type"),
				GPGKeyPath:       v.GetString("gpg-key"),
				GPGPassphrase:    v.GetString("gpg-passphrase"),
				Lock:             v.GetBool("lock"),
				AssumeNewCatalog: v.GetBool("assume-new-catalog"),
			}
			destinationConfig(v, &config)

			logrus.Info("Starting publish...")
			logrus.Debugf("Box: %s %s from %s to %s (%s)", config.Name, config.Version, config.BoxPath, config.Destination, config.Backend)

			return runPublish(cmd.Context(), afero.NewOsFs(), &config)
		},
	}

	addDestinationFlags(cmd)

	// Box flags
	cmd.Flags().StringP("provider", "p", "", "Provider name (detected from the box when empty)")
	cmd.Flags().String("base-url", "", "Public URL of the destination, recorded in the catalog instead of the backend URL")
	cmd.Flags().String("checksum-type", utils.DefaultChecksumType, "Checksum type (md5, sha1, sha256, sha384, sha512)")
	cmd.Flags().String("content-type", "", "Content type of the uploaded box (s3)")

	// Signing flags
	cmd.Flags().StringP("gpg-key", "k", "", "Path to GPG private key used to sign the catalog")
	cmd.Flags().String("gpg-passphrase", "", "GPG key passphrase")

	// Catalog flags
	cmd.Flags().Bool("lock", false, "Hold a lock on the catalog while updating it (local backend)")
	cmd.Flags().Bool("assume-new-catalog", false, "Start a new catalog when it cannot be fetched (scp backend)")

	return cmd
}

func runPublish(ctx context.Context, fs afero.Fs, config *models.PublishConfig) error {
	if config.Provider == "" {
		provider, err := box.DetectProvider(fs, config.BoxPath)
		if err != nil {
			return models.NewConfigError("no provider given and %v", err)
		}
		logrus.Infof("Detected provider %s", provider)
		config.Provider = provider
	}

	t, err := newTransport(config)
	if err != nil {
		return err
	}

	pubConfig := publisher.Config{
		Transport:        t,
		Fs:               fs,
		ChecksumType:     config.ChecksumType,
		BaseURL:          config.BaseURL,
		Lock:             config.Lock,
		AssumeNewCatalog: config.AssumeNewCatalog,
	}

	if config.GPGKeyPath != "" {
		gpgSigner, err := signer.NewGPGSigner(config.GPGKeyPath, config.GPGPassphrase)
		if err != nil {
			return &models.PublishError{
				Phase: models.PhaseSign,
				Err:   fmt.Errorf("failed to initialize GPG signer: %w", err),
			}
		}
		pubConfig.Signer = gpgSigner
		logrus.Infof("GPG signer initialized with key %s", gpgSigner.KeyID())
	}

	p, err := publisher.New(pubConfig)
	if err != nil {
		return err
	}

	result, err := p.Publish(ctx, publisher.Box{
		Name:        config.Name,
		Description: config.Description,
		Version:     config.Version,
		Provider:    config.Provider,
		Path:        config.BoxPath,
	})
	if err != nil {
		return err
	}

	logrus.Info("Publish completed successfully!")
	logrus.Infof("Box URL: %s", result.BoxURL)
	logrus.Infof("Catalog: %s", result.CatalogLocation)

	return nil
}
