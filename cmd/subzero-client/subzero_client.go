// SPDX-License-Identifier: ice License 1.0

package main

import (
	"log"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ice-blockchain/subzero-client/cfg"
	"github.com/ice-blockchain/subzero-client/client"
	"github.com/ice-blockchain/subzero-client/keys"
	"github.com/ice-blockchain/subzero-client/nip19"
)

const nsecEnv = "SUBZERO_NSEC"

var (
	configPath    string
	relayURL      string
	nsec          string
	subzeroClient = &cobra.Command{
		Use:   "subzero-client",
		Short: "nostr client: keys, publishing and subscriptions",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if configPath != "" {
				cfg.MustInit(configPath)
			}
		},
	}
	initFlags = func() {
		subzeroClient.PersistentFlags().StringVar(&configPath, "config", "", "path to application.yaml with the `client` section")
		subzeroClient.PersistentFlags().StringVar(&relayURL, "relay", "", "relay websocket url, overrides client.url")
		subzeroClient.PersistentFlags().StringVar(&nsec, "nsec", "", "private key (nsec or hex), defaults to $"+nsecEnv)
		subzeroClient.AddCommand(keygen, publish, dm, listen)
		initPublishFlags()
		initListenFlags()
	}
)

func init() {
	initFlags()
}

func main() {
	if err := subzeroClient.Execute(); err != nil {
		log.Panic(err)
	}
}

func clientConfig() *client.Config {
	c := cfg.MustGet[client.Config]()
	if relayURL != "" {
		c.URL = relayURL
	}
	if c.URL == "" {
		log.Fatal(client.ErrNoURL)
	}
	defaults := c.Defaults()

	return &defaults
}

func privateKey() (*keys.PrvKey, error) {
	secret := nsec
	if secret == "" {
		secret = os.Getenv(nsecEnv)
	}
	if secret == "" {
		return nil, errors.Errorf("private key is missing, use --nsec or $%v", nsecEnv)
	}
	if strings.HasPrefix(secret, nip19.PrefixPrivateKey+"1") {
		return keys.FromBech32(secret)
	}

	return keys.FromHex(secret)
}

func publicKey(value string) (string, error) {
	if strings.HasPrefix(value, nip19.PrefixPublicKey+"1") {
		return nip19.DecodeExpecting(nip19.PrefixPublicKey, value)
	}
	if _, err := keys.ParsePublicKey(value); err != nil || len(value) != 2*keys.PublicKeySize {
		return "", errors.Wrapf(keys.ErrInvalidPublicKey, "recipient %v must be an npub or a 64 char hex x-only key", value)
	}

	return value, nil
}
