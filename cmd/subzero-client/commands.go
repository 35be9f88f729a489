// SPDX-License-Identifier: ice License 1.0

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	stdlibtime "time"

	"github.com/cockroachdb/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ice-blockchain/subzero-client/client"
	"github.com/ice-blockchain/subzero-client/keys"
	"github.com/ice-blockchain/subzero-client/model"
	"github.com/ice-blockchain/subzero-client/nip19"
)

var (
	pow        int
	powWorkers int
	kind       int
	recipients []string
	kinds      []int
	authors    []string
	limit      int

	keygen = &cobra.Command{
		Use:   "keygen",
		Short: "generates a new key pair",
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := keys.Generate()
			if err != nil {
				return err
			}
			cmd.Printf("nsec: %v\nnpub: %v\nhex:  %v\n", k.Nsec(), k.Npub(), k.PubKey())

			return nil
		},
	}
	publish = &cobra.Command{
		Use:   "publish [content]",
		Short: "signs and publishes an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			k, err := privateKey()
			if err != nil {
				return err
			}
			ev := model.NewEvent(kind, args[0])
			if err = mine(ctx, ev, k); err != nil {
				return err
			}
			if err = ev.Sign(k); err != nil {
				return err
			}

			return send(ctx, cmd, ev)
		},
	}
	dm = &cobra.Command{
		Use:   "dm [message]",
		Short: "encrypts a direct message to one or more recipients and publishes it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			k, err := privateKey()
			if err != nil {
				return err
			}
			pubkeys := make([]string, 0, len(recipients))
			for _, recipient := range recipients {
				pk, pErr := publicKey(recipient)
				if pErr != nil {
					return pErr
				}
				pubkeys = append(pubkeys, pk)
			}
			ev, err := model.NewEncryptedMessage(args[0], k, pubkeys...)
			if err != nil {
				return err
			}

			return send(ctx, cmd, ev)
		},
	}
	listen = &cobra.Command{
		Use:   "listen",
		Short: "subscribes to a relay and prints incoming events until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			k, _ := privateKey() //nolint:errcheck // Optional, only used to decrypt direct messages.
			filter := model.NewFilter().Count(limit).PublishedBy(authors...)
			if len(kinds) > 0 {
				filter = filter.Types(kinds...)
			}
			session := client.New(clientConfig())
			subID, err := session.Subscribe(ctx, *filter)
			if err != nil {
				return err
			}
			cmd.Printf("subscribed %v\n", subID)
			defer func() {
				if uErr := session.Unsubscribe(context.Background()); uErr != nil {
					log.Printf("ERROR:%v", uErr)
				}
			}()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-session.Done():
					return session.Err()
				case resp := <-session.Responses():
					printResponse(cmd, resp, k)
				}
			}
		},
	}
)

func initPublishFlags() {
	publish.Flags().IntVar(&kind, "kind", model.KindTextNote, "event kind")
	publish.Flags().IntVar(&pow, "pow", 0, "leading zero bits of the event id to mine")
	publish.Flags().IntVar(&powWorkers, "powWorkers", 0, "proof of work goroutines, 0 for one per cpu")
	dm.Flags().StringSliceVar(&recipients, "to", nil, "recipient npub or hex public key, repeatable")
	if err := dm.MarkFlagRequired("to"); err != nil {
		log.Fatal(err)
	}
}

func initListenFlags() {
	listen.Flags().IntSliceVar(&kinds, "kinds", nil, "kinds to subscribe to")
	listen.Flags().StringSliceVar(&authors, "authors", nil, "hex public keys of the authors to follow")
	listen.Flags().IntVar(&limit, "limit", model.DefaultFilterLimit, "stored events to replay")
}

func mine(ctx context.Context, ev *model.Event, k *keys.PrvKey) error {
	if pow <= 0 {
		return nil
	}
	model.PoWWorkers = powWorkers
	ev.PubKey = k.PubKey()
	bar := progressbar.Default(-1, fmt.Sprintf("mining %v bits", pow))
	done := make(chan struct{})
	go func() {
		ticker := stdlibtime.NewTicker(100 * stdlibtime.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = bar.Add(1) //nolint:errcheck // Cosmetic.
			}
		}
	}()
	tag, err := ev.SetPoWTag(ctx, pow)
	close(done)
	_ = bar.Finish() //nolint:errcheck // Cosmetic.
	if err != nil {
		return errors.Wrapf(err, "failed to mine %v bits", pow)
	}
	log.Printf("mined nonce %v", strings.Join(tag, ","))

	return nil
}

func send(ctx context.Context, cmd *cobra.Command, ev *model.Event) error {
	c := clientConfig()
	resp, err := client.Publish(ctx, c.URL, ev, c.Timeout)
	if err != nil {
		return err
	}
	note, err := nip19.EncodeNote(ev.ID)
	if err != nil {
		return err
	}
	switch {
	case resp.Label == model.EnvelopeTypeNotice:
		return errors.Errorf("relay notice for %v: %v", note, resp.Message)
	case !resp.Accepted:
		return errors.Errorf("relay rejected %v: %v", note, resp.Message)
	}
	cmd.Printf("published %v\n", note)

	return nil
}

func printResponse(cmd *cobra.Command, resp *client.Response, k *keys.PrvKey) {
	switch resp.Label { //nolint:exhaustive // Others are printed raw.
	case model.EnvelopeTypeEvent:
		content := resp.Event.Content
		if resp.Event.Kind == model.KindEncryptedDirectMessage {
			content = "<encrypted>"
			if k != nil {
				if plain, err := resp.Event.Decrypt(k); err == nil {
					content = plain
				}
			}
		}
		cmd.Printf("%v [%v] %v: %v\n", resp.Event.CreatedAt.Time().Format(stdlibtime.RFC3339), resp.Event.Kind, resp.Event.PubKey, content)
	case model.EnvelopeTypeEOSE:
		cmd.Printf("-- end of stored events for %v --\n", resp.SubscriptionID)
	case model.EnvelopeTypeNotice, model.EnvelopeTypeClosed:
		cmd.Printf("%v: %v\n", resp.Label, resp.Message)
	default:
		cmd.Printf("%s\n", resp.Raw)
	}
}
