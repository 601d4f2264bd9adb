package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"securehealth-console/internal/domain"
	"securehealth-console/internal/view"
)

const timeLayout = "2006-01-02 15:04"

func render(w io.Writer, v view.View) {
	switch v := v.(type) {
	case *view.AdminDashboard:
		renderAdmin(w, v.State())
	case *view.ThreatHunter:
		renderThreatHunter(w, v.State())
	case *view.AuditLog:
		renderAuditLog(w, v.State())
	case *view.DoctorDashboard:
		renderDoctor(w, v.State())
	case *view.NurseDashboard:
		renderNurse(w, v.State())
	case *view.PrivacyQuery:
		renderPrivacyQuery(w, v.State())
	default:
		fmt.Fprintf(w, "%s\n", v.Route())
	}
}

func liveLabel(connected bool) string {
	if connected {
		return "● Live"
	}
	return "○ Reconnecting…"
}

func stamp(t domain.Timestamp) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func newTable(w io.Writer, header ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	return tw
}

func row(tw *tabwriter.Writer, cols ...string) {
	fmt.Fprintln(tw, strings.Join(cols, "\t"))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func renderAdmin(w io.Writer, st view.AdminState) {
	fmt.Fprintf(w, "Admin Dashboard  %s\n\n", liveLabel(st.Connected))
	fmt.Fprintf(w, "Staff %d (admin %d, doctor %d, nurse %d)  Active alerts %d  Logs today %d\n\n",
		len(st.Staff), st.RoleCounts[domain.RoleAdmin], st.RoleCounts[domain.RoleDoctor],
		st.RoleCounts[domain.RoleNurse], len(st.Alerts), st.LogsToday)

	fmt.Fprintln(w, "Alerts")
	renderAlerts(w, st.Alerts)

	fmt.Fprintln(w, "\nLive activity")
	if len(st.Activity) == 0 {
		fmt.Fprintln(w, "  waiting for activity…")
		return
	}
	tw := newTable(w, "TIME", "USER", "ROLE", "ACTION", "PATIENT", "WARD")
	for _, a := range st.Activity {
		row(tw, stamp(a.Timestamp), a.UserName, string(a.UserRole), string(a.Action), a.PatientName, a.PatientWard)
	}
	_ = tw.Flush()
}

func renderAlerts(w io.Writer, alerts []domain.Alert) {
	if len(alerts) == 0 {
		fmt.Fprintln(w, "  no active alerts")
		return
	}
	tw := newTable(w, "ID", "SEVERITY", "TYPE", "USER", "LOCKED", "CREATED", "DETAILS")
	for _, a := range alerts {
		user := a.UserName
		if user == "" {
			user = "#" + strconv.FormatInt(a.UserID, 10)
		}
		row(tw, strconv.FormatInt(a.ID, 10), strings.ToUpper(string(a.Severity)), a.AlertType,
			user, yesNo(bool(a.AutoLocked)), stamp(a.CreatedAt), a.Details)
	}
	_ = tw.Flush()
}

func renderThreatHunter(w io.Writer, st view.ThreatHunterState) {
	fmt.Fprintf(w, "Threat Hunter  %s\n", liveLabel(st.Connected))
	if st.LastTranscript != "" {
		fmt.Fprintf(w, "Heard: %q\n", st.LastTranscript)
	}
	if st.Status != "" {
		fmt.Fprintf(w, "%s\n", st.Status)
	}
	fmt.Fprintln(w)
	renderAlerts(w, st.Alerts)
}

func highlightMark(h view.Highlight) string {
	switch h {
	case view.HighlightCritical:
		return "!!"
	case view.HighlightFlagged:
		return "!"
	case view.HighlightHighScore:
		return "*"
	default:
		return ""
	}
}

func renderAuditLog(w io.Writer, st view.AuditLogState) {
	dir := "desc"
	if st.SortAsc {
		dir = "asc"
	}
	fmt.Fprintf(w, "Audit Logs  %d entries, sorted by %s %s\n\n", len(st.Logs), st.SortKey, dir)
	if len(st.Logs) == 0 {
		fmt.Fprintln(w, "  no matching entries")
		return
	}
	page, pages := view.PageLogs(st.Logs, 0)
	tw := newTable(w, "", "ID", "TIME", "USER", "ACTION", "RESOURCE", "PATIENT", "SCORE", "FLAGGED")
	for _, l := range page {
		patient := "-"
		if l.PatientID != nil {
			patient = strconv.FormatInt(*l.PatientID, 10)
		}
		user := l.UserName
		if user == "" {
			user = "#" + strconv.FormatInt(l.UserID, 10)
		}
		if l.Count > 1 {
			user = fmt.Sprintf("%s (x%d)", user, l.Count)
		}
		row(tw, highlightMark(view.HighlightFor(l)), strconv.FormatInt(l.ID, 10), stamp(l.Timestamp), user,
			string(l.Action), l.Resource, patient, strconv.FormatFloat(l.AnomalyScore, 'f', 2, 64), yesNo(bool(l.Flagged)))
	}
	_ = tw.Flush()
	if pages > 1 {
		fmt.Fprintf(w, "\npage 1 of %d, use --export for the full result\n", pages)
	}
}

func renderPatients(w io.Writer, patients []domain.Patient) {
	if len(patients) == 0 {
		fmt.Fprintln(w, "  no patients")
		return
	}
	tw := newTable(w, "ID", "NAME", "AGE", "WARD", "RISK", "SCHEMES", "STATE")
	for _, p := range patients {
		schemes := strings.Join(p.SchemeEligible, ",")
		if schemes == "" {
			schemes = "-"
		}
		row(tw, strconv.FormatInt(p.ID, 10), p.Name, strconv.Itoa(p.Age), p.Ward,
			fmt.Sprintf("%.2f %s", p.RiskScore, domain.BandFor(p.RiskScore)), schemes, p.State)
	}
	_ = tw.Flush()
}

func renderPatient(w io.Writer, p domain.Patient) {
	doctor := p.AssignedDoctor
	if doctor == "" && p.AssignedDoctorID != nil {
		doctor = "#" + strconv.FormatInt(*p.AssignedDoctorID, 10)
	}
	if doctor == "" {
		doctor = "-"
	}
	schemes := strings.Join(p.SchemeEligible, ", ")
	if schemes == "" {
		schemes = "-"
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row(tw, "Name", p.Name)
	row(tw, "ID", strconv.FormatInt(p.ID, 10))
	row(tw, "Age", strconv.Itoa(p.Age)+" ("+string(domain.BracketFor(p.Age))+")")
	row(tw, "Ward", p.Ward)
	row(tw, "Doctor", doctor)
	row(tw, "Risk", fmt.Sprintf("%.2f %s", p.RiskScore, domain.BandFor(p.RiskScore)))
	row(tw, "Schemes", schemes)
	row(tw, "State", p.State)
	_ = tw.Flush()
}

func renderCounts(w io.Writer, title string, counts []view.Count) {
	if len(counts) == 0 {
		return
	}
	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		parts = append(parts, fmt.Sprintf("%s=%d", c.Key, c.Count))
	}
	fmt.Fprintf(w, "%s: %s\n", title, strings.Join(parts, "  "))
}

func renderDoctor(w io.Writer, st view.DoctorState) {
	fmt.Fprintln(w, "Doctor Dashboard")
	fmt.Fprintf(w, "Patients %d  Avg risk %.2f  High risk %d  Scheme eligible %d\n",
		st.Stats.Total, st.Stats.AvgRisk, st.Stats.HighRisk, st.Stats.SchemeEligible)
	renderCounts(w, "Risk", st.Buckets)
	renderCounts(w, "Schemes", st.Schemes)
	renderCounts(w, "Wards", st.Wards)
	fmt.Fprintln(w)
	renderPatients(w, st.Patients)
}

func renderNurse(w io.Writer, st view.NurseState) {
	fmt.Fprintf(w, "Nurse Dashboard\nPatients %d  High risk %d\n\n", len(st.Patients), st.HighRisk)
	renderPatients(w, st.Patients)
	fmt.Fprintln(w, "\nMy recent access")
	if len(st.MyLogs) == 0 {
		fmt.Fprintln(w, "  none")
		return
	}
	tw := newTable(w, "TIME", "ACTION", "RESOURCE")
	for _, l := range st.MyLogs {
		row(tw, stamp(l.Timestamp), string(l.Action), l.Resource)
	}
	_ = tw.Flush()
}

func renderPrivacyQuery(w io.Writer, st view.PrivacyQueryState) {
	fmt.Fprintln(w, "Privacy Query")
	if len(st.Messages) == 0 {
		fmt.Fprintln(w, `  ask e.g. "which of my patients qualify for a scheme?"`)
		return
	}
	for _, m := range st.Messages {
		fmt.Fprintf(w, "%-6s %s\n", m.Speaker+":", m.Text)
	}
}
