// alert-seeder generates synthetic Wazuh-style alerts for exercising the
// extraction and correlation pipeline. Output can be a single alert, a
// newline-delimited record stream or a search-engine hit envelope, matching
// the three payload shapes the loader accepts.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

var (
	count      = flag.Int("count", 20, "Number of alerts to generate")
	format     = flag.String("format", "ndjson", "Output format: single, ndjson, envelope")
	output     = flag.String("output", "-", "Output file (- for stdout)")
	seed       = flag.Int64("seed", 0, "Random seed (0 for time-based)")
	noMitre    = flag.Float64("no-mitre-ratio", 0.2, "Fraction of alerts without MITRE identifiers")
	freeText   = flag.Float64("free-text-ratio", 0.3, "Fraction of alerts carrying identifiers only in free text")
	timeSpread = flag.Duration("time-spread", 24*time.Hour, "Spread alert timestamps over this period")
)

type scenario struct {
	description string
	techniques  []string
	level       int
	groups      []string
}

var scenarios = []scenario{
	{"SQL injection attempt detected on web portal", []string{"T1190"}, 12, []string{"web", "attack", "sql_injection"}},
	{"Suspicious PowerShell execution with encoded command", []string{"T1059.001"}, 10, []string{"windows", "powershell"}},
	{"Phishing email with malicious attachment delivered", []string{"T1566.001"}, 9, []string{"email", "phishing"}},
	{"Multiple authentication failures followed by success", []string{"T1110"}, 10, []string{"authentication_failures", "brute_force"}},
	{"Mass file encryption activity observed", []string{"T1486"}, 14, []string{"ransomware", "impact"}},
	{"Web shell dropped after server-side exploit", []string{"T1190", "T1505.003"}, 13, []string{"web", "persistence"}},
	{"Scheduled task created by unusual parent process", []string{"T1053.005"}, 8, []string{"windows", "persistence"}},
	{"Outbound connection to known C2 infrastructure", []string{"T1071.001"}, 12, []string{"command_and_control"}},
}

func main() {
	flag.Parse()

	if *seed != 0 {
		gofakeit.Seed(*seed)
		rand.Seed(*seed)
	} else {
		gofakeit.Seed(time.Now().UnixNano())
	}

	switch *format {
	case "single", "ndjson", "envelope":
	default:
		log.Fatalf("unknown format %q (want single, ndjson or envelope)", *format)
	}

	out := os.Stdout
	if *output != "-" {
		f, err := os.Create(*output)
		if err != nil {
			log.Fatalf("create output: %v", err)
		}
		defer f.Close()
		out = f
	}

	n := *count
	if *format == "single" {
		n = 1
	}

	alerts := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		alerts = append(alerts, generateAlert())
	}

	enc := json.NewEncoder(out)
	switch *format {
	case "single":
		enc.SetIndent("", "  ")
		if err := enc.Encode(alerts[0]); err != nil {
			log.Fatalf("encode alert: %v", err)
		}
	case "ndjson":
		for _, a := range alerts {
			if err := enc.Encode(a); err != nil {
				log.Fatalf("encode alert: %v", err)
			}
		}
	case "envelope":
		hits := make([]map[string]interface{}, 0, len(alerts))
		for _, a := range alerts {
			hits = append(hits, map[string]interface{}{
				"_index":  "wazuh-alerts-4.x-" + time.Now().Format("2006.01.02"),
				"_id":     gofakeit.UUID(),
				"_source": a,
			})
		}
		envelope := map[string]interface{}{
			"took":      rand.Intn(50),
			"timed_out": false,
			"hits": map[string]interface{}{
				"total": map[string]interface{}{"value": len(hits), "relation": "eq"},
				"hits":  hits,
			},
		}
		enc.SetIndent("", "  ")
		if err := enc.Encode(envelope); err != nil {
			log.Fatalf("encode envelope: %v", err)
		}
	}

	log.Printf("generated %d alerts (%s)", n, *format)
}

func generateAlert() map[string]interface{} {
	sc := scenarios[rand.Intn(len(scenarios))]

	ts := time.Now()
	if *timeSpread > 0 {
		ts = ts.Add(-time.Duration(rand.Int63n(int64(*timeSpread))))
	}

	rule := map[string]interface{}{
		"id":          fmt.Sprintf("%d", 100000+rand.Intn(10000)),
		"level":       sc.level,
		"description": sc.description,
		"groups":      sc.groups,
		"firedtimes":  1 + rand.Intn(20),
	}

	alert := map[string]interface{}{
		"timestamp": ts.Format("2006-01-02T15:04:05.000-0700"),
		"rule":      rule,
		"agent": map[string]interface{}{
			"id":   fmt.Sprintf("%03d", 1+rand.Intn(30)),
			"name": gofakeit.AppName(),
			"ip":   gofakeit.IPv4Address(),
		},
		"manager": map[string]interface{}{
			"name": "wazuh-manager",
		},
		"location": []string{"/var/log/auth.log", "/var/log/nginx/access.log", "EventChannel", "/var/ossec/logs/active-responses.log"}[rand.Intn(4)],
		"id":       gofakeit.UUID(),
	}

	r := rand.Float64()
	switch {
	case r < *noMitre:
		// No identifiers anywhere.
	case r < *noMitre+*freeText:
		// Identifiers appear only in free text, the extractor must find
		// them with its pattern scan.
		alert["full_log"] = fmt.Sprintf("%s host=%s techniques observed: %s",
			sc.description, gofakeit.DomainName(), strings.Join(sc.techniques, ", "))
	default:
		rule["mitre"] = map[string]interface{}{
			"id":        sc.techniques,
			"technique": techniqueNames(sc.techniques),
		}
	}

	return alert
}

func techniqueNames(ids []string) []string {
	names := map[string]string{
		"T1190":     "Exploit Public-Facing Application",
		"T1059.001": "PowerShell",
		"T1566.001": "Spearphishing Attachment",
		"T1110":     "Brute Force",
		"T1486":     "Data Encrypted for Impact",
		"T1505.003": "Web Shell",
		"T1053.005": "Scheduled Task",
		"T1071.001": "Web Protocols",
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := names[id]; ok {
			out = append(out, name)
		} else {
			out = append(out, id)
		}
	}
	return out
}
