package portal

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"gradewatch/internal/grades"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	GradeTableSelector = "div#cont1 table.t_list"

	gradeRowSelector    = "tbody tr"
	subjectCellSelector = "td[data-mb='교과목']"
	gradeCellSelector   = "td[data-mb='등급']"
	statusCellSelector  = "td[data-mb='성적입력']"

	usernameInputSelector = "#userId"
	passwordInputSelector = "#userPw"
	loginButtonSelector   = "button.loginbtn1"
)

func parseDocument(page string, source []byte) (*goquery.Document, error) {
	root, err := html.Parse(bytes.NewReader(source))
	if err != nil {
		return nil, &PageStructureFailure{
			Page:   page,
			Reason: fmt.Sprintf("parse html: %s", err.Error()),
			Source: source,
		}
	}
	return goquery.NewDocumentFromNode(root), nil
}

func cellText(s *goquery.Selection) string {
	return strings.TrimSpace(s.First().Text())
}

// ParseGradeTable reads every subject row of the grade table. Rows without
// a subject cell are headers and skipped, any other malformed row fails the
// whole page so a partial snapshot is never returned.
func ParseGradeTable(source []byte) (grades.Snapshot, error) {
	doc, err := parseDocument("grades", source)
	if err != nil {
		return nil, err
	}
	fail := func(reason string) error {
		return &PageStructureFailure{Page: "grades", Reason: reason, Source: source}
	}

	table := doc.Find(GradeTableSelector).First()
	if table.Length() == 0 {
		return nil, fail("grade table not found")
	}

	snapshot := grades.Snapshot{}
	var rowErr error
	table.Find(gradeRowSelector).EachWithBreak(func(i int, row *goquery.Selection) bool {
		subjectCell := row.Find(subjectCellSelector)
		if subjectCell.Length() == 0 {
			return true
		}
		subject := cellText(subjectCell)

		gradeCell := row.Find(gradeCellSelector)
		if gradeCell.Length() == 0 {
			rowErr = fmt.Errorf("row %d (%s): missing grade cell", i, subject)
			return false
		}
		statusCell := row.Find(statusCellSelector)
		if statusCell.Length() == 0 {
			rowErr = fmt.Errorf("row %d (%s): missing status cell", i, subject)
			return false
		}

		snapshot = append(snapshot, grades.Record{
			Subject: subject,
			Grade:   cellText(gradeCell),
			Status:  cellText(statusCell),
		})
		return true
	})
	if rowErr != nil {
		return nil, fail(rowErr.Error())
	}
	if len(snapshot) == 0 {
		return nil, fail("grade table has no subject rows")
	}
	err = snapshot.Validate()
	if err != nil {
		return nil, fail(err.Error())
	}

	return snapshot, nil
}

// LoginForm is what is needed to submit the portal's login form.
type LoginForm struct {
	// Action is the absolute url the form posts to.
	Action        string
	UsernameField string
	PasswordField string
	// Hidden holds the form's hidden inputs, they are posted back as is.
	Hidden url.Values
}

// Values returns the form body for the given credentials.
func (f LoginForm) Values(username, password string) url.Values {
	out := url.Values{}
	for k, v := range f.Hidden {
		out[k] = append([]string(nil), v...)
	}
	out.Set(f.UsernameField, username)
	out.Set(f.PasswordField, password)
	return out
}

// ParseLoginForm finds the login form on the page at pageUrl.
func ParseLoginForm(source []byte, pageUrl *url.URL) (LoginForm, error) {
	doc, err := parseDocument("login", source)
	if err != nil {
		return LoginForm{}, err
	}

	username := doc.Find(usernameInputSelector).First()
	password := doc.Find(passwordInputSelector).First()
	if username.Length() == 0 || password.Length() == 0 {
		return LoginForm{}, &PageStructureFailure{
			Page:   "login",
			Reason: "login inputs not found",
			Source: source,
		}
	}

	// some portals submit through javascript with no enclosing form, the
	// document then stands in for it.
	scope := username.Closest("form")
	if scope.Length() == 0 {
		scope = doc.Selection
	}

	action := pageUrl
	if raw, ok := scope.Attr("action"); ok && strings.TrimSpace(raw) != "" {
		action, err = pageUrl.Parse(strings.TrimSpace(raw))
		if err != nil {
			return LoginForm{}, &PageStructureFailure{
				Page:   "login",
				Reason: fmt.Sprintf("invalid form action %q", raw),
				Source: source,
			}
		}
	}

	hidden := url.Values{}
	scope.Find("input[type=hidden]").Each(func(_ int, input *goquery.Selection) {
		name := input.AttrOr("name", "")
		if name == "" {
			return
		}
		hidden.Add(name, input.AttrOr("value", ""))
	})

	return LoginForm{
		Action:        action.String(),
		UsernameField: username.AttrOr("name", "userId"),
		PasswordField: password.AttrOr("name", "userPw"),
		Hidden:        hidden,
	}, nil
}

var alertRegex = regexp.MustCompile(`alert\(\s*["'](.*?)["']\s*\)`)

// findAlert returns the message of the first alert() call in an inline
// script, the portal reports login errors this way.
func findAlert(doc *goquery.Document) (string, bool) {
	var message string
	found := false
	doc.Find("script").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		groups := alertRegex.FindStringSubmatch(script.Text())
		if len(groups) < 2 {
			return true
		}
		message = groups[1]
		found = true
		return false
	})
	return message, found
}

func hasLoginForm(doc *goquery.Document) bool {
	return doc.Find(passwordInputSelector).Length() > 0
}

// CheckLoginResponse inspects the page returned after posting credentials,
// an alert or the login form showing up again means the login failed.
func CheckLoginResponse(source []byte) error {
	doc, err := parseDocument("login", source)
	if err != nil {
		return err
	}
	if message, ok := findAlert(doc); ok {
		return &AuthFailure{Message: message}
	}
	if hasLoginForm(doc) {
		return &AuthFailure{Message: "login form shown again after submitting credentials"}
	}
	return nil
}
