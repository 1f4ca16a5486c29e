package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/storacha/sasurl/pkg/sas"
)

var PathCmd = &cli.Command{
	Name:  "path",
	Usage: "Print the canonicalized resource path a blob signature is bound to.",
	Flags: []cli.Flag{
		RequiredStringFlag(AccountNameFlag),
		RequiredStringFlag(ContainerFlag),
		RequiredStringFlag(BlobFlag),
	},
	Action: func(cCtx *cli.Context) error {
		p, err := CanonicalPath(cCtx.String("account-name"), cCtx.String("container"), cCtx.String("blob"))
		if err != nil {
			return err
		}
		fmt.Println(p)
		return nil
	},
}

// CanonicalPath returns /blob/{account}/{container}/{blob}, failing when the
// names would not parse back to themselves.
func CanonicalPath(account, container, blob string) (string, error) {
	id := sas.ResourceIdentity{AccountName: account, ContainerName: container, BlobName: blob}
	p := sas.CanonicalizedResourcePath(id)
	parsed, err := sas.ParseCanonicalizedResourcePath(p)
	if err != nil {
		return "", err
	}
	if parsed != id {
		return "", fmt.Errorf("%w: account and container names must not contain '/'", sas.ErrMalformedIdentity)
	}
	return p, nil
}
