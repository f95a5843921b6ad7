package extract

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"

	"github.com/moazrovne/harvest-cli/internal/model"
)

// Field labels as they appear on the archive pages.
const (
	labelAnswer  = "პასუხი:"
	labelComment = "კომენტარი:"
	labelSource  = "წყარო:"
	labelPacket  = "პაკეტი:"
)

// Moazrovne extracts question fields from moazrovne.net HTML.
type Moazrovne struct{}

var _ Extractor = Moazrovne{}
var _ ListingExtractor = Moazrovne{}

// Extract parses a single question page. A page whose content heading reads
// "404" is the archive's well-formed way of saying the ID does not exist.
func (Moazrovne) Extract(doc []byte) (Result, error) {
	d, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		return Result{}, eris.Wrap(err, "extract: parse html")
	}

	if h := d.Find("div.content > h1").First(); h.Length() > 0 && strings.TrimSpace(h.Text()) == "404" {
		return Result{NotFound: true}, nil
	}

	return Result{Question: parseQuestion(d.Selection)}, nil
}

// ExtractListing parses an archive listing page into the questions it holds,
// including each question's ID from its permalink. Blocks without a parsable
// ID are dropped.
func (Moazrovne) ExtractListing(doc []byte) ([]model.Question, error) {
	d, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		return nil, eris.Wrap(err, "extract: parse listing html")
	}

	var questions []model.Question
	d.Find("li.q").Each(func(_ int, li *goquery.Selection) {
		id, ok := questionID(li)
		if !ok {
			return
		}
		q := parseQuestion(li)
		q.QuestionID = id
		questions = append(questions, q)
	})
	return questions, nil
}

// questionID pulls the numeric ID from the permalink in the question header.
func questionID(sel *goquery.Selection) (int, bool) {
	href, ok := sel.Find("p.question_top .left a").First().Attr("href")
	if !ok {
		return 0, false
	}
	parts := strings.Split(strings.TrimRight(href, "/"), "/")
	id, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

// parseQuestion extracts the question fields from one question block. The ID
// is left for the caller, which knows it from the probe or the permalink.
func parseQuestion(sel *goquery.Selection) model.Question {
	var q model.Question

	q.Question = clean(sel.Find("p.question_question").First().Text())
	q.Author = clean(strings.Trim(sel.Find("p.question_top .right").First().Text(), "©  "))
	if href, ok := sel.Find("p.question_question a.shadowbox").First().Attr("href"); ok {
		q.ImageURL = strings.TrimSpace(href)
	}

	sel.Find("div.answer_body > span.clearfix").Each(func(_ int, span *goquery.Selection) {
		label := span.Find("span.left").First()
		value := span.Find("span.right_nofloat").First()
		if label.Length() == 0 || value.Length() == 0 {
			return
		}
		switch strings.TrimSpace(label.Text()) {
		case labelAnswer:
			q.Answer = clean(value.Text())
		case labelComment:
			q.Comment = clean(value.Text())
		case labelSource:
			q.Source = flattenSource(value)
		case labelPacket:
			q.Packet = clean(value.Text())
		}
	})

	return q
}

// flattenSource joins the source field's mixed content: link targets are kept
// as URLs, list items and loose text as trimmed text.
func flattenSource(value *goquery.Selection) string {
	var parts []string
	value.Contents().Each(func(_ int, n *goquery.Selection) {
		var part string
		switch goquery.NodeName(n) {
		case "a":
			if href, ok := n.Attr("href"); ok {
				part = strings.TrimSpace(href)
			}
		case "li":
			part = clean(n.Text())
		case "#text":
			part = strings.TrimSpace(n.Text())
		}
		if part != "" {
			parts = append(parts, part)
		}
	})
	return norm.NFC.String(strings.Join(parts, " "))
}

// clean collapses whitespace runs and NFC-normalizes extracted text.
func clean(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}
