package cmd

import "github.com/urfave/cli/v2"

func RequiredStringFlag(strFlag *cli.StringFlag) *cli.StringFlag {
	copy := *strFlag
	copy.Required = true
	return &copy
}

var ConfigFlag = &cli.StringFlag{
	Name:    "config",
	Usage:   "Path to configuration file.",
	EnvVars: []string{"SASURL_CONFIG"},
}

var StackFlag = &cli.StringFlag{
	Name:    "stack",
	Aliases: []string{"s"},
	Usage:   "Name of the stack outputs are recorded under.",
	EnvVars: []string{"SASURL_STACK"},
}

var DataDirFlag = &cli.StringFlag{
	Name:    "data-dir",
	Aliases: []string{"d"},
	Usage:   "Root directory to store recorded outputs in.",
	EnvVars: []string{"SASURL_DATA_DIR"},
}

var AccountNameFlag = &cli.StringFlag{
	Name:    "account-name",
	Aliases: []string{"a"},
	Usage:   "Name of the storage account holding the blob.",
	EnvVars: []string{"SASURL_ACCOUNT_NAME"},
}

var ResourceGroupFlag = &cli.StringFlag{
	Name:    "resource-group",
	Aliases: []string{"g"},
	Usage:   "Resource group of the storage account.",
	EnvVars: []string{"SASURL_RESOURCE_GROUP"},
}

var ContainerFlag = &cli.StringFlag{
	Name:    "container",
	Aliases: []string{"c"},
	Usage:   "Name of the blob container.",
	EnvVars: []string{"SASURL_CONTAINER"},
}

var BlobFlag = &cli.StringFlag{
	Name:    "blob",
	Aliases: []string{"b"},
	Usage:   "Name of the blob.",
	EnvVars: []string{"SASURL_BLOB"},
}

var IdentityFlags = []cli.Flag{
	AccountNameFlag,
	ResourceGroupFlag,
	ContainerFlag,
	BlobFlag,
	&cli.StringFlag{
		Name:    "blob-url",
		Usage:   "Base URL of the blob, derived from the account, container and blob names when not set.",
		EnvVars: []string{"SASURL_BLOB_URL"},
	},
	&cli.StringFlag{
		Name:    "endpoint-suffix",
		Usage:   "Blob endpoint domain used to derive the blob URL.",
		EnvVars: []string{"SASURL_ENDPOINT_SUFFIX"},
	},
}

var WindowFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "window-start",
		Usage:   "Start of the access window (RFC3339 or YYYY-MM-DD).",
		EnvVars: []string{"SASURL_WINDOW_START"},
	},
	&cli.StringFlag{
		Name:    "window-end",
		Usage:   "End of the access window (RFC3339 or YYYY-MM-DD).",
		EnvVars: []string{"SASURL_WINDOW_END"},
	},
}

var IssuerFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "backend",
		Usage:   "Token issuer backend: arm, sharedkey or s3.",
		EnvVars: []string{"SASURL_BACKEND"},
	},
	&cli.StringFlag{
		Name:    "subscription-id",
		Usage:   "Azure subscription the storage account belongs to (arm backend).",
		EnvVars: []string{"SASURL_SUBSCRIPTION_ID"},
	},
	&cli.StringFlag{
		Name:    "account-key",
		Usage:   "Base64 storage account key (sharedkey backend).",
		EnvVars: []string{"SASURL_ACCOUNT_KEY"},
	},
	&cli.StringFlag{
		Name:    "account-key-param",
		Usage:   "SSM parameter holding the storage account key (sharedkey backend).",
		EnvVars: []string{"SASURL_ACCOUNT_KEY_PARAM"},
	},
	&cli.StringFlag{
		Name:    "s3-endpoint",
		Usage:   "S3 compatible endpoint URL (s3 backend).",
		EnvVars: []string{"SASURL_S3_ENDPOINT"},
	},
	&cli.StringFlag{
		Name:    "s3-region",
		Usage:   "Region used for signing (s3 backend).",
		EnvVars: []string{"SASURL_S3_REGION"},
	},
	&cli.StringFlag{
		Name:    "s3-access-key-id",
		Usage:   "Access key ID (s3 backend).",
		EnvVars: []string{"SASURL_S3_ACCESS_KEY_ID"},
	},
	&cli.StringFlag{
		Name:    "s3-secret-access-key",
		Usage:   "Secret access key (s3 backend).",
		EnvVars: []string{"SASURL_S3_SECRET_ACCESS_KEY"},
	},
	&cli.StringFlag{
		Name:    "s3-secret-access-key-param",
		Usage:   "SSM parameter holding the secret access key (s3 backend).",
		EnvVars: []string{"SASURL_S3_SECRET_ACCESS_KEY_PARAM"},
	},
}

// ConfigFlags are every flag config.LoadConfig reads.
var ConfigFlags = flagsOf(
	[]cli.Flag{ConfigFlag, StackFlag, DataDirFlag},
	IdentityFlags,
	WindowFlags,
	IssuerFlags,
)

func flagsOf(groups ...[]cli.Flag) []cli.Flag {
	var flags []cli.Flag
	for _, g := range groups {
		flags = append(flags, g...)
	}
	return flags
}
