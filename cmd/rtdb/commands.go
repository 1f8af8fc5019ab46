package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/rtdbkit/eventsource"
	"github.com/kbukum/rtdbkit/logger"
	"github.com/kbukum/rtdbkit/rtdb"
	"github.com/kbukum/rtdbkit/version"
)

// queryFlags are the ordering and filtering flags shared by get and watch.
type queryFlags struct {
	orderBy    string
	limitFirst int
	limitLast  int
	startAt    string
	endAt      string
	equalTo    string
	shallow    bool
	export     bool
}

func (q *queryFlags) register(cmd *cobra.Command, withShallow bool) {
	f := cmd.Flags()
	f.StringVar(&q.orderBy, "order-by", "", `child key, "$key", "$value" or "$priority" to order by`)
	f.IntVar(&q.limitFirst, "limit-first", 0, "keep the first N results")
	f.IntVar(&q.limitLast, "limit-last", 0, "keep the last N results")
	f.StringVar(&q.startAt, "start-at", "", "range start (JSON literal or plain string)")
	f.StringVar(&q.endAt, "end-at", "", "range end (JSON literal or plain string)")
	f.StringVar(&q.equalTo, "equal-to", "", "exact match (JSON literal or plain string)")
	f.BoolVar(&q.export, "export", false, "request the export format")
	if withShallow {
		f.BoolVar(&q.shallow, "shallow", false, "return only the keys of the location")
	}
}

// apply adds the set flags to c's query. Unset flags are not sent.
func (q *queryFlags) apply(cmd *cobra.Command, c *rtdb.Client) (*rtdb.Client, error) {
	p := c.WithParams()
	changed := cmd.Flags().Changed
	if q.orderBy != "" {
		p.OrderBy(q.orderBy)
	}
	if changed("limit-first") {
		p.LimitToFirst(q.limitFirst)
	}
	if changed("limit-last") {
		p.LimitToLast(q.limitLast)
	}
	if changed("start-at") {
		p.StartAt(literal(q.startAt))
	}
	if changed("end-at") {
		p.EndAt(literal(q.endAt))
	}
	if changed("equal-to") {
		p.EqualTo(literal(q.equalTo))
	}
	if q.shallow {
		p.Shallow(true)
	}
	if q.export {
		p.Format()
	}
	return p.Finish()
}

// literal decodes s as JSON, falling back to the string itself, so that
// --start-at 5 is a number and --start-at bob a string.
// Numbers keep their exact text.
func literal(s string) any {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return s
	}
	if _, err := dec.Token(); err != io.EOF {
		return s
	}
	return v
}

func getCmd(flags *globalFlags) *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Read a location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.close()

			c, err := q.apply(cmd, a.db.At(args[0]))
			if err != nil {
				return err
			}
			body, err := c.GetAsString(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), body)
			return err
		},
	}
	q.register(cmd, true)
	return cmd
}

type writeOp int

const (
	opSet writeOp = iota
	opUpdate
	opPush
)

func writeCmd(flags *globalFlags, use, short string, op writeOp) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !json.Valid([]byte(args[1])) {
				return fmt.Errorf("value is not valid JSON: %s", args[1])
			}
			value := json.RawMessage(args[1])

			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.close()

			c := a.db.At(args[0])
			var body []byte
			switch op {
			case opSet:
				body, err = c.SetAt(cmd.Context(), value)
			case opUpdate:
				body, err = c.Update(cmd.Context(), value)
			case opPush:
				body, err = c.Set(cmd.Context(), value)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(body))
			return err
		},
	}
}

func deleteCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <path>",
		Short: "Remove a location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.close()
			return a.db.At(args[0]).Delete(cmd.Context())
		},
	}
}

func watchCmd(flags *globalFlags) *cobra.Command {
	var (
		q         queryFlags
		keepAlive bool
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "watch <path>",
		Short: "Stream changes to a location until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.close()

			c, err := q.apply(cmd, a.db.At(args[0]))
			if err != nil {
				return err
			}
			events, err := c.WithRealtimeEvents()
			if err != nil {
				return err
			}
			defer events.Close()

			a.log.Info("watching", logger.Fields(logger.FieldEndpoint, c.URL()))
			out := cmd.OutOrStdout()
			errOut := cmd.ErrOrStderr()
			events.Listen(cmd.Context(),
				func(eventType string, data *string) {
					printEvent(out, eventType, data, asJSON)
				},
				func(err error) {
					a.log.Warn("stream error", logger.ErrorFields("watch", err))
					fmt.Fprintln(errOut, "error:", err)
				},
				eventsource.WithKeepAlive(keepAlive),
			)
			return nil
		},
	}
	q.register(cmd, false)
	cmd.Flags().BoolVar(&keepAlive, "keep-alive", false, "show keep-alive events")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON object per event")
	return cmd
}

type eventLine struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func printEvent(w io.Writer, eventType string, data *string, asJSON bool) {
	if !asJSON {
		if data == nil {
			fmt.Fprintln(w, eventType)
			return
		}
		fmt.Fprintf(w, "%s\t%s\n", eventType, *data)
		return
	}

	line := eventLine{Event: eventType, Data: json.RawMessage("null")}
	if data != nil {
		if json.Valid([]byte(*data)) {
			line.Data = json.RawMessage(*data)
		} else {
			quoted, _ := json.Marshal(*data)
			line.Data = quoted
		}
	}
	_ = json.NewEncoder(w).Encode(line)
}

func versionCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(info)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "rtdb", info.String())
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
