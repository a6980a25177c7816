package main

import (
	"context"
	"fmt"
	"io"
	"net/mail"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/neomorfeo/secretsanta/internal/domain"
	"github.com/neomorfeo/secretsanta/internal/draw"
	"github.com/neomorfeo/secretsanta/internal/token"
)

type drawOptions struct {
	participants []string
	tokens       bool
	seed         uint64
	cipher       string
	workers      int
	// entropy overrides the token key source; nil means crypto/rand.
	entropy io.Reader
}

func newDrawCmd() *cobra.Command {
	opts := &drawOptions{}

	cmd := &cobra.Command{
		Use:   "draw",
		Short: "Draw an assignment set",
		Example: `  santa draw -p "Ann <ann@example.com>" -p "Bob <bob@example.com>" -p "Cid <cid@example.com>"
  santa draw --tokens -p ... -p ...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var shuffler draw.Shuffler = draw.NewRandomizer()
			if cmd.Flags().Changed("seed") {
				shuffler = draw.NewSeededRandomizer(opts.seed)
			}
			return runDraw(cmd.Context(), cmd.OutOrStdout(), opts, shuffler)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.participants, "participant", "p", nil, `participant as "Name <email>" (repeatable)`)
	cmd.Flags().BoolVar(&opts.tokens, "tokens", false, "show sealed display tokens instead of recipients")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "seed the shuffle for a reproducible draw")
	cmd.Flags().StringVar(&opts.cipher, "cipher", string(token.CipherAuto), "token cipher: auto, aes-gcm or chacha20-poly1305")
	cmd.Flags().IntVar(&opts.workers, "workers", 1, "parallel token sealing workers")

	return cmd
}

// parseParticipant reads "Name <email>". The lower-cased address doubles as
// the participant id so a repeated email is rejected as a duplicate.
func parseParticipant(s string) (domain.Participant, error) {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return domain.Participant{}, fmt.Errorf("participant %q: %w", s, err)
	}
	name := strings.TrimSpace(addr.Name)
	if name == "" {
		return domain.Participant{}, fmt.Errorf("participant %q: %w", s,
			&domain.ValidationError{Field: "name", Reason: "must not be empty"})
	}
	return domain.Participant{ID: strings.ToLower(addr.Address), Name: name, Email: addr.Address}, nil
}

func runDraw(ctx context.Context, out io.Writer, opts *drawOptions, shuffler draw.Shuffler) error {
	participants := make([]domain.Participant, 0, len(opts.participants))
	for _, s := range opts.participants {
		p, err := parseParticipant(s)
		if err != nil {
			return err
		}
		participants = append(participants, p)
	}

	cipher, err := token.ParseCipher(opts.cipher)
	if err != nil {
		return err
	}

	assignments, err := draw.New(shuffler).Assign(participants)
	if err != nil {
		return err
	}
	if len(assignments) == 0 {
		fmt.Fprintln(out, color.YellowString("!")+" Need at least two participants to draw.")
		return nil
	}

	v := draw.Verify(assignments, participants)
	if !v.Valid() {
		return fmt.Errorf("assignment set failed verification: derangement=%t bijection=%t", v.Derangement, v.Bijection)
	}

	var set domain.TokenSet
	if opts.tokens {
		enc := token.New(token.Config{Cipher: cipher, Workers: opts.workers, Rand: opts.entropy})
		set, err = enc.Encrypt(ctx, assignments)
		if err != nil {
			return err
		}
		if !set.Available {
			fmt.Fprintln(out, color.YellowString("!")+" Tokens are not available on this host; listing givers only.")
		}
	}

	for i, a := range assignments {
		giver := color.CyanString(a.Giver.Name) + " <" + a.Giver.Email + ">"
		if opts.tokens {
			if set.Available {
				fmt.Fprintf(out, "%s  %s\n", giver, color.YellowString(string(set.Tokens[i])))
			} else {
				fmt.Fprintln(out, giver)
			}
			continue
		}
		fmt.Fprintf(out, "%s -> %s\n", giver, color.YellowString(a.Recipient.Name))
	}

	fmt.Fprintf(out, "%s %d participants, nobody draws themselves, everyone receives one gift\n",
		color.GreenString("✓"), len(participants))
	return nil
}
