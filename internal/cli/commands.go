package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/voicepay/internal/common"
	"github.com/dmitrijs2005/voicepay/internal/server"
	"github.com/dmitrijs2005/voicepay/internal/server/analyzer"
	"github.com/dmitrijs2005/voicepay/internal/server/audiostore"
	"github.com/dmitrijs2005/voicepay/internal/server/services"
	"github.com/dmitrijs2005/voicepay/internal/voiceprint"
	"github.com/spf13/cobra"
)

// previewValues is how many voiceprint values extract prints.
const previewValues = 5

func (a *App) registerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "register <user-id> <audio-file>",
		Short: "Enroll a user from a recording of their spoken secret",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			audio, err := voiceprint.ReadAudioFile(args[1])
			if err != nil {
				return err
			}
			return a.withBackend(cmd.Context(), func(b backend) error {
				r, err := b.Register(cmd.Context(), args[0], audio)
				if err != nil {
					return err
				}
				fields := []field{
					{"user", r.UserID},
					{"method", r.EmbeddingMethod},
					{"dimensions", fmt.Sprint(r.EmbeddingDimensions)},
					{"secret digits", fmt.Sprint(r.SecretDigits)},
					{"file hash", r.FileHashPrefix},
				}
				if r.FallbackReason != "" {
					fields = append(fields, field{"fallback", a.styles.Dim.Render(r.FallbackReason)})
				}
				a.styles.printBlock(a.out, "Registered", fields...)
				return nil
			})
		},
	}
}

func (a *App) printAuthentication(r *services.AuthenticationResult) {
	a.styles.printBlock(a.out, "Authentication",
		field{"result", a.styles.yesNo(r.Authenticated, "authenticated", "rejected")},
		field{"user", r.UserID},
		field{"similarity", fmt.Sprintf("%.4f", r.SimilarityScore)},
		field{"threshold", fmt.Sprintf("%.2f", r.ThresholdUsed)},
		field{"secret matches", fmt.Sprint(r.SecretMatches)},
		field{"message", r.Message},
	)
}

func (a *App) authenticateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "authenticate <audio-file>",
		Short: "Identify the speaker of a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			audio, err := voiceprint.ReadAudioFile(args[0])
			if err != nil {
				return err
			}
			return a.withBackend(cmd.Context(), func(b backend) error {
				r, err := b.Authenticate(cmd.Context(), audio)
				if err != nil {
					return err
				}
				a.printAuthentication(r)
				return nil
			})
		},
	}
}

func (a *App) usersCommand() *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "List and manage enrollments",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every enrollment, active or not",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd.Context(), func(b backend) error {
				l, err := b.ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				if l.Total == 0 {
					fmt.Fprintln(a.out, a.styles.Dim.Render("no users enrolled"))
					return nil
				}
				a.styles.printUsers(a.out, l.Users)
				fmt.Fprintln(a.out, a.styles.Dim.Render(fmt.Sprintf("%d user(s)", l.Total)))
				return nil
			})
		},
	}

	get := &cobra.Command{
		Use:   "get <user-id>",
		Short: "Show one enrollment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd.Context(), func(b backend) error {
				u, err := b.GetUser(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				a.styles.printBlock(a.out, "User "+u.UserID,
					field{"status", a.styles.yesNo(u.IsActive, "active", "inactive")},
					field{"method", u.EmbeddingMethod},
					field{"dimensions", fmt.Sprint(u.EmbeddingDimensions)},
					field{"has secret", fmt.Sprint(u.HasSecretNumbers)},
					field{"created", formatTime(u.CreatedAt)},
					field{"updated", formatTime(u.UpdatedAt)},
				)
				return nil
			})
		},
	}

	state := func(use, short, done string, apply func(b backend, cmd *cobra.Command, id string) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <user-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withBackend(cmd.Context(), func(b backend) error {
					if err := apply(b, cmd, args[0]); err != nil {
						return err
					}
					fmt.Fprintf(a.out, "%s %s\n", args[0], done)
					return nil
				})
			},
		}
	}

	deactivate := state("deactivate", "Exclude a user from authentication", "deactivated",
		func(b backend, cmd *cobra.Command, id string) error { return b.Deactivate(cmd.Context(), id) })
	reactivate := state("reactivate", "Restore a deactivated user", "reactivated",
		func(b backend, cmd *cobra.Command, id string) error { return b.Reactivate(cmd.Context(), id) })

	var yes bool
	del := state("delete", "Remove a user permanently", "deleted",
		func(b backend, cmd *cobra.Command, id string) error {
			if !yes {
				if err := Confirm(a.in, a.out, fmt.Sprintf("Permanently delete %s?", id), id); err != nil {
					return err
				}
			}
			return b.Delete(cmd.Context(), id)
		})
	del.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	users.AddCommand(list, get, deactivate, reactivate, del)
	return users
}

func (a *App) statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show store statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd.Context(), func(b backend) error {
				s, err := b.Stats(cmd.Context())
				if err != nil {
					return err
				}
				a.styles.printBlock(a.out, "Store",
					field{"location", s.Location},
					field{"total", fmt.Sprint(s.Total)},
					field{"active", fmt.Sprint(s.Active)},
					field{"inactive", fmt.Sprint(s.Inactive)},
					field{"size", fmt.Sprintf("%.2f MB", s.StorageMB)},
					field{"threshold", fmt.Sprintf("%.2f", s.Threshold)},
				)
				return nil
			})
		},
	}
}

func (a *App) extractCommand() *cobra.Command {
	var withSecret bool
	cmd := &cobra.Command{
		Use:   "extract <audio-file>",
		Short: "Compute the voiceprint of a recording without storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.isRemote() {
				return errLocalOnly
			}
			data, err := voiceprint.ReadAudioFile(args[0])
			if err != nil {
				return err
			}
			r := voiceprint.NewExtractor().Extract(data)

			preview := make([]string, 0, previewValues)
			for _, v := range r.Embedding[:min(previewValues, len(r.Embedding))] {
				preview = append(preview, fmt.Sprintf("%.4f", v))
			}
			fields := []field{
				{"method", r.Method},
				{"dimensions", fmt.Sprint(r.Dimensions)},
				{"file hash", r.FileHash},
				{"first values", strings.Join(preview, " ")},
			}
			if r.Error != "" {
				fields = append(fields, field{"fallback", a.styles.Dim.Render(r.Error)})
			}

			if withSecret {
				an, err := server.NewAnalyzer(cmd.Context(), a.cfg)
				if err != nil {
					return err
				}
				digits, err := analyzer.NewSecretExtractor(an, a.cfg.AnalyzerTimeout).Extract(cmd.Context(), analyzer.NewAudio(data))
				if err != nil {
					return err
				}
				fields = append(fields, field{"secret", joinDigits(digits)})
			}

			a.styles.printBlock(a.out, "Voiceprint", fields...)
			return nil
		},
	}
	cmd.Flags().BoolVar(&withSecret, "secret", false, "also ask the analyzer for the spoken secret")
	return cmd
}

func joinDigits(d []int) string {
	s := make([]string, len(d))
	for i, v := range d {
		s[i] = fmt.Sprint(v)
	}
	return strings.Join(s, "-")
}

func (a *App) tokenCommand() *cobra.Command {
	token := &cobra.Command{
		Use:   "token",
		Short: "Mint access tokens with the configured secret key",
	}

	var name string
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Print an admin token for the management calls of --server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := services.NewTokenService(a.cfg).IssueAdmin(name)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, t)
			return nil
		},
	}
	admin.Flags().StringVar(&name, "name", "admin", "subject of the token")

	token.AddCommand(admin)
	return token
}

func (a *App) intentCommand() *cobra.Command {
	var audioPath, payer string
	cmd := &cobra.Command{
		Use:   "intent <transcript>",
		Short: "Extract and validate the payment command in a transcript",
		Long: `Extract the payment command in a transcript on behalf of a payer.

The payer is either identified by voice (--audio) or named directly with
--payer. Against --server, --payer is ignored and the payer comes from
--audio or from the session token passed with --token.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if audioPath == "" && payer == "" && !(a.isRemote() && a.token != "") {
				return errors.New("one of --audio or --payer is required")
			}

			return a.withBackend(cmd.Context(), func(b backend) error {
				payerID := payer
				if audioPath != "" {
					audio, err := voiceprint.ReadAudioFile(audioPath)
					if err != nil {
						return err
					}
					r, err := b.Authenticate(cmd.Context(), audio)
					if err != nil {
						return err
					}
					if !r.Authenticated {
						a.printAuthentication(r)
						return fmt.Errorf("%w: speaker not recognised", common.ErrorUnauthorized)
					}
					payerID = r.UserID
				}

				p, err := b.AnalyzePayment(cmd.Context(), payerID, args[0])
				if err != nil {
					return err
				}
				a.printPayment(p)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&audioPath, "audio", "", "recording identifying the payer")
	cmd.Flags().StringVar(&payer, "payer", "", "payer user id")
	cmd.MarkFlagsMutuallyExclusive("audio", "payer")
	return cmd
}

func (a *App) printPayment(p *services.PaymentAnalysis) {
	in := p.Intent
	fields := []field{
		{"payer", p.PayerID},
		{"payment command", fmt.Sprint(in.HasPaymentCommand)},
	}
	if in.HasPaymentCommand {
		fields = append(fields,
			field{"action", in.Action},
			field{"amount", fmt.Sprintf("%d.%02d %s", in.AmountCents/100, in.AmountCents%100, strings.ToUpper(in.Currency))},
			field{"recipient", in.Recipient},
		)
	}
	fields = append(fields,
		field{"confidence", fmt.Sprintf("%.2f", in.Confidence)},
		field{"ready", a.styles.yesNo(p.Validation.ReadyForProcessing, "yes", "no")},
	)
	if p.Validation.Summary != "" {
		fields = append(fields, field{"summary", p.Validation.Summary})
	}
	for _, e := range p.Validation.Errors {
		fields = append(fields, field{"error", a.styles.Bad.Render(e)})
	}
	for _, w := range p.Validation.Warnings {
		fields = append(fields, field{"warning", w})
	}
	a.styles.printBlock(a.out, "Payment", fields...)
}

func (a *App) unsealCommand() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "unseal <sample-file>",
		Short: "Decrypt an archived sample with the configured archive key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.ArchiveKey == "" {
				return errors.New("no archive key configured")
			}
			sealed, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			plain, err := audiostore.Unseal(a.cfg.ArchiveKey, sealed)
			if err != nil {
				return fmt.Errorf("unseal %s: %w", args[0], err)
			}
			if outPath == "" {
				_, err = a.out.Write(plain)
				return err
			}
			return os.WriteFile(outPath, plain, 0o600)
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the audio here instead of stdout")
	return cmd
}
