package cli

import (
	"strings"

	"github.com/ralt/caryatid/internal/models"
	"github.com/ralt/caryatid/internal/transport"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// addDestinationFlags registers the flags selecting and configuring a backend
func addDestinationFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("backend", "b", "local", "Destination backend (local, scp, s3)")
	cmd.Flags().StringP("destination", "d", "", "Destination directory, user@host:/path or https://bucket.host/prefix")
	cmd.Flags().String("access-key", "", "Object storage access key (s3)")
	cmd.Flags().String("secret-key", "", "Object storage secret key (s3)")
	cmd.Flags().String("scp-command", "scp", "Command used to copy files (scp)")
	cmd.Flags().String("ssh-command", "ssh", "Command used to create remote directories (scp)")
}

// loadViper layers flags over CARYATID_* environment variables over the
// configuration file
func loadViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("CARYATID")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, models.NewConfigError("failed to bind flags: %v", err)
	}

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, models.NewConfigError("failed to read config file %s: %v", path, err)
		}
	}

	return v, nil
}

// destinationConfig reads the backend settings shared by all commands
func destinationConfig(v *viper.Viper, config *models.PublishConfig) {
	config.Backend = v.GetString("backend")
	config.Destination = v.GetString("destination")
	config.AccessKey = v.GetString("access-key")
	config.SecretKey = v.GetString("secret-key")
	config.SCPCommand = v.GetString("scp-command")
	config.SSHCommand = v.GetString("ssh-command")
}

// newTransport validates the destination settings and creates the backend
func newTransport(config *models.PublishConfig) (transport.Transport, error) {
	if config.Destination == "" {
		return nil, models.NewConfigError("destination is required")
	}

	kind, err := transport.ParseKind(config.Backend)
	if err != nil {
		return nil, models.NewConfigError("%v", err)
	}

	return transport.New(transport.Config{
		Kind:        kind,
		Destination: config.Destination,
		AccessKey:   config.AccessKey,
		SecretKey:   config.SecretKey,
		ContentType: config.ContentType,
		SCPCommand:  config.SCPCommand,
		SSHCommand:  config.SSHCommand,
	})
}
