package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"securehealth-console/internal/api"
	"securehealth-console/internal/app"
	"securehealth-console/internal/config"
	"securehealth-console/internal/domain"
	"securehealth-console/internal/export"
	"securehealth-console/internal/guard"
	"securehealth-console/internal/logger"
	"securehealth-console/internal/view"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serviceName = "securehealth-console"

// cliState 命令共享的运行时，由 main 创建并传给各命令；
// console 为空时在 PersistentPreRunE 中按配置构造
type cliState struct {
	cfg     *config.Config
	logger  *zap.Logger
	console *app.Console
}

// close 在 Execute 返回后调用；RunE 出错时 cobra 不执行 PostRun
func (st *cliState) close() {
	if st.console != nil {
		if err := st.console.Close(); err != nil {
			st.logger.Warn("Failed to close console", zap.Error(err))
		}
	}
	if st.logger != nil {
		_ = st.logger.Sync()
	}
}

func newRootCmd(st *cliState) *cobra.Command {
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Operator console for the SecureHealth data-security service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if st.console != nil {
				return nil
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			st.cfg, st.logger = cfg, log
			st.console, err = app.New(cmd.Context(), cfg, log)
			return err
		},
	}

	root.AddCommand(
		newLoginCmd(st),
		newLogoutCmd(st),
		newWhoamiCmd(st),
		newOpenCmd(st),
		newResolveCmd(st),
		newScanCmd(st),
		newVoiceCmd(st),
		newAskCmd(st),
		newLogsCmd(st),
		newPatientsCmd(st),
		newPatientCmd(st),
	)
	return root
}

func newLoginCmd(st *cliState) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in and persist the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("SECUREHEALTH_PASSWORD")
			}
			if password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			sess, landing, err := st.console.Login(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s). Home: %s\n", sess.Name, sess.Role, landing)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (default: $SECUREHEALTH_PASSWORD or prompt)")
	return cmd
}

func newLogoutCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the persisted session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := st.console.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, ok := st.console.Session.Current()
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (id %d)\nrole: %s\ndepartment: %s\nhome: %s\n",
				sess.Name, sess.ID, sess.Role, sess.Department, guard.HomeFor(sess.Role))
			return nil
		},
	}
}

// errRedirected 请求的路由被守卫重定向
type errRedirected struct {
	want, got string
}

func (e errRedirected) Error() string {
	if e.got == guard.LoginRoute {
		return fmt.Sprintf("%s requires a signed-in session; run login first", e.want)
	}
	return fmt.Sprintf("%s is not available to this role (home is %s)", e.want, e.got)
}

// requireSession 守卫放行前不发出任何患者数据请求
func (st *cliState) requireSession(what string) error {
	sess, _ := st.console.Session.Current()
	if d := guard.Authorize(sess); !d.Allow {
		return errRedirected{want: what, got: d.Redirect}
	}
	return nil
}

// openView 导航到 route 并要求守卫放行到同一路由
func openView[T view.View](st *cliState, cmd *cobra.Command, route string) (T, error) {
	var zero T
	got, v, err := st.console.Navigate(cmd.Context(), route)
	if err != nil {
		return zero, err
	}
	if got != route {
		return zero, errRedirected{want: route, got: got}
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected view for %s", route)
	}
	return t, nil
}

func newOpenCmd(st *cliState) *cobra.Command {
	var follow bool
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "open <route>",
		Short: "Open a view (" + strings.Join(routePaths(), ", ") + ")",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			route, v, err := st.console.Navigate(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if route != args[0] {
				fmt.Fprintf(out, "Redirected to %s\n", route)
			}
			if v == nil {
				fmt.Fprintln(out, "Not signed in. Use: securehealth-console login <email>")
				return nil
			}
			render(out, v)
			if !follow {
				return nil
			}

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case to := <-st.console.Redirected():
					fmt.Fprintf(out, "Session ended, redirected to %s\n", to)
					return nil
				case <-ticker.C:
					render(out, v)
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "stay attached and re-render until interrupted")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "re-render interval with --follow")
	return cmd
}

func routePaths() []string {
	var out []string
	for _, r := range guard.Routes() {
		if !r.Public() {
			out = append(out, r.Path)
		}
	}
	return out
}

func newResolveCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <alert-id>",
		Short: "Mark an alert as resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid alert id %q", args[0])
			}
			th, err := openView[*view.ThreatHunter](st, cmd, guard.ThreatHunterRoute)
			if err != nil {
				return err
			}
			if err := th.Resolve(cmd.Context(), id); err != nil {
				return fmt.Errorf("resolve alert %d: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Alert %d resolved. %d open.\n", id, len(th.State().Alerts))
			return nil
		},
	}
}

func newScanCmd(st *cliState) *cobra.Command {
	var req domain.ScanRequest
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run the threat hunter scan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			th, err := openView[*view.ThreatHunter](st, cmd, guard.ThreatHunterRoute)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), view.StatusScanning)
			_, scanErr := th.RunScan(cmd.Context(), req)
			render(cmd.OutOrStdout(), th)
			return scanErr
		},
	}
	cmd.Flags().StringVar(&req.Ward, "ward", "", "limit the scan to one ward")
	cmd.Flags().StringVar(&req.UserName, "user", "", "limit the scan to one staff member")
	return cmd
}

func newVoiceCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "voice <transcript>",
		Short: `Send a threat hunter command, e.g. "Hunter, scan ward D"`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			th, err := openView[*view.ThreatHunter](st, cmd, guard.ThreatHunterRoute)
			if err != nil {
				return err
			}
			_, voiceErr := th.Voice(cmd.Context(), strings.Join(args, " "))
			render(cmd.OutOrStdout(), th)
			return voiceErr
		},
	}
}

func newAskCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the privacy query agent about your patients",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pq, err := openView[*view.PrivacyQuery](st, cmd, guard.PrivacyQueryRoute)
			if err != nil {
				return err
			}
			answer, err := pq.Ask(cmd.Context(), strings.Join(args, " "))
			if errors.Is(err, view.ErrEmptyQuestion) {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
}

func newLogsCmd(st *cliState) *cobra.Command {
	var (
		userID   int64
		action   string
		flagged  bool
		from, to string
		limit    int
		sortKey  string
		asc      bool
		out      string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Query the audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := api.LogQuery{
				Action:      domain.Action(strings.ToUpper(action)),
				FlaggedOnly: flagged,
				Limit:       limit,
			}
			if cmd.Flags().Changed("user-id") {
				q.UserID = &userID
			}
			var err error
			if q.From, err = parseLocalTime(from); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			if q.To, err = parseLocalTime(to); err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			al, err := openView[*view.AuditLog](st, cmd, guard.AuditLogsRoute)
			if err != nil {
				return err
			}
			al.Apply(cmd.Context(), q)
			if err := al.Sort(view.SortKey(sortKey), asc); err != nil {
				return err
			}

			if out == "" {
				render(cmd.OutOrStdout(), al)
				return nil
			}
			return exportLogs(cmd, out, al.State().Logs)
		},
	}
	cmd.Flags().Int64Var(&userID, "user-id", 0, "only this user")
	cmd.Flags().StringVar(&action, "action", "", "VIEW, EDIT, EXPORT, LOGIN or LOGOUT")
	cmd.Flags().BoolVar(&flagged, "flagged", false, "only flagged entries")
	cmd.Flags().StringVar(&from, "from", "", "start time, 2006-01-02T15:04")
	cmd.Flags().StringVar(&to, "to", "", "end time, 2006-01-02T15:04")
	cmd.Flags().IntVar(&limit, "limit", api.DefaultLogLimit, "maximum entries")
	cmd.Flags().StringVar(&sortKey, "sort", string(view.SortByTimestamp), "timestamp or anomaly_score")
	cmd.Flags().BoolVar(&asc, "asc", false, "ascending order")
	cmd.Flags().StringVar(&out, "export", "", "write to a .csv or .xlsx file instead of printing (a directory gets a generated name)")
	return cmd
}

func parseLocalTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation("2006-01-02T15:04", s, time.Local)
}

func exportLogs(cmd *cobra.Command, out string, logs []domain.AuditLog) error {
	if fi, err := os.Stat(out); err == nil && fi.IsDir() {
		out = filepath.Join(out, export.LogsFileName(time.Now(), "csv"))
	}
	switch strings.ToLower(filepath.Ext(out)) {
	case ".xlsx":
		if err := export.WriteLogsXLSX(out, logs); err != nil {
			return err
		}
	case ".csv":
		f, err := os.OpenFile(out, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		if err := export.WriteLogsCSV(f, logs); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported export format %q (use .csv or .xlsx)", filepath.Ext(out))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", len(logs), out)
	return nil
}

func newPatientsCmd(st *cliState) *cobra.Command {
	var (
		f      view.PatientFilter
		age    string
		risk   string
		scheme string
	)
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "List patients visible to the current role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Age = domain.AgeBracket(age)
			f.Risk = domain.RiskBand(risk)
			switch strings.ToLower(scheme) {
			case "":
			case "yes", "true":
				yes := true
				f.SchemeEligible = &yes
			case "no", "false":
				no := false
				f.SchemeEligible = &no
			default:
				return fmt.Errorf("--scheme must be yes or no")
			}

			route, v, err := st.console.Navigate(cmd.Context(), guard.DoctorRoute)
			if err != nil {
				return err
			}
			var patients []domain.Patient
			switch v := v.(type) {
			case *view.DoctorDashboard:
				patients = v.State().Patients
			case *view.NurseDashboard:
				patients = v.State().Patients
			default:
				return errRedirected{want: guard.DoctorRoute, got: route}
			}
			renderPatients(cmd.OutOrStdout(), view.FilterPatients(patients, f))
			return nil
		},
	}
	cmd.Flags().StringVar(&f.Ward, "ward", "", "ward name")
	cmd.Flags().StringVar(&f.Search, "search", "", "match name or ward")
	cmd.Flags().StringVar(&age, "age", "", "under-25, 25-34, 35-44 or 45-plus")
	cmd.Flags().StringVar(&risk, "risk", "", "low, medium or high")
	cmd.Flags().StringVar(&scheme, "scheme", "", "yes or no: scheme eligibility")
	return cmd
}

func newPatientCmd(st *cliState) *cobra.Command {
	patient := &cobra.Command{
		Use:   "patient",
		Short: "Single patient operations",
	}
	var dir string
	exportCmd := &cobra.Command{
		Use:   "export <patient-id>",
		Short: "Export a patient record to patient_<name>.json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := patientID(args[0])
			if err != nil {
				return err
			}
			if err := st.requireSession("patient export"); err != nil {
				return err
			}
			p, err := st.console.API.ExportPatient(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("export patient %d: %w", id, err)
			}
			path, err := export.WritePatientJSON(dir, *p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Patient data exported to %s\n", path)
			return nil
		},
	}
	exportCmd.Flags().StringVar(&dir, "dir", ".", "output directory")

	showCmd := &cobra.Command{
		Use:   "show <patient-id>",
		Short: "Show one patient record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := patientID(args[0])
			if err != nil {
				return err
			}
			if err := st.requireSession("patient show"); err != nil {
				return err
			}
			p, err := st.console.API.GetPatient(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("get patient %d: %w", id, err)
			}
			renderPatient(cmd.OutOrStdout(), *p)
			return nil
		},
	}

	var (
		upd   domain.PatientUpdate
		age   int
		ward  string
		state string
		risk  float64
	)
	editCmd := &cobra.Command{
		Use:   "edit <patient-id>",
		Short: "Update age, ward, state or risk score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := patientID(args[0])
			if err != nil {
				return err
			}
			if err := st.requireSession("patient edit"); err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("age") {
				upd.Age = &age
			}
			if flags.Changed("ward") {
				upd.Ward = &ward
			}
			if flags.Changed("state") {
				upd.State = &state
			}
			if flags.Changed("risk") {
				if st.console.Session.IsNurse() {
					return errors.New("nurses cannot change the risk score")
				}
				upd.RiskScore = &risk
			}
			if upd == (domain.PatientUpdate{}) {
				return errors.New("nothing to update")
			}
			p, err := st.console.API.UpdatePatient(cmd.Context(), id, upd)
			if err != nil {
				return fmt.Errorf("update patient %d: %w", id, err)
			}
			renderPatient(cmd.OutOrStdout(), *p)
			return nil
		},
	}
	editCmd.Flags().IntVar(&age, "age", 0, "age in years")
	editCmd.Flags().StringVar(&ward, "ward", "", "ward name")
	editCmd.Flags().StringVar(&state, "state", "", "state of residence")
	editCmd.Flags().Float64Var(&risk, "risk", 0, "risk score 0..1 (doctors and admins only)")

	patient.AddCommand(exportCmd, showCmd, editCmd)
	return patient
}

func patientID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid patient id %q", s)
	}
	return id, nil
}
