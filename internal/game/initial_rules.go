// internal/game/initial_rules.go
package game

import "github.com/jason-s-yu/nomic/internal/models"

// InitialRules returns the starting rulebook. The 100 band is immutable
// at creation and the 200 band mutable, following the traditional Nomic
// numbering; transmutation can later move rules between the two classes.
func InitialRules() []models.Rule {
	immutable := []models.Rule{
		{ID: 101, Text: "All players must always abide by all the rules then in effect, in the form in which they are then in effect."},
		{ID: 102, Text: "Initially, rules in the 100 band are immutable and rules in the 200 band are mutable."},
		{ID: 103, Text: "A rule change is any enactment, repeal, or amendment of a mutable rule, or any transmutation of a rule between immutable and mutable."},
		{ID: 104, Text: "All rule changes proposed in the proper way shall be voted on."},
		{ID: 105, Text: "Every player is an eligible voter and must cast exactly one vote on every proposal, which may be an abstention."},
		{ID: 106, Text: "Any proposed rule change must be written down before it is voted on."},
		{ID: 107, Text: "No rule change may take effect earlier than the moment of the completion of the vote that adopted it."},
		{ID: 108, Text: "Each proposed rule change shall be given a number for reference, in order of proposal, beginning above every reserved rule number."},
		{ID: 109, Text: "An adopted rule change takes full effect at the moment of the completion of the vote that adopted it."},
		{ID: 110, Text: "Mutable rules that are inconsistent with an immutable rule are wholly void; the immutable rule prevails."},
		{ID: 111, Text: "If a rule change is unclear or ambiguous, the other players may interpret it by vote before it takes effect."},
		{ID: 112, Text: "The state of affairs that constitutes winning may not be changed from achieving the victory point target while any immutable rule forbids it."},
		{ID: 113, Text: "A player always has the option to forfeit the game rather than continue to play."},
		{ID: 114, Text: "There must always be at least one mutable rule."},
		{ID: 115, Text: "Rule changes that affect rules needed to allow or apply rule changes are permissible, but only one at a time."},
		{ID: 116, Text: "Whatever is not prohibited or regulated by a rule is permitted and unregulated."},
	}
	mutable := []models.Rule{
		{ID: 201, Text: "Players shall alternate in numerical order of joining, taking one whole turn apiece."},
		{ID: 202, Text: "One turn consists of proposing one rule change and having it voted on."},
		{ID: 203, Text: "A rule change is adopted if and only if the votes in favor strictly exceed the votes against."},
		{ID: 204, Text: "If and when rule changes can be adopted without unanimity, the players who vote against winning proposals shall receive the configured penalty."},
		{ID: 205, Text: "An adopted rule change's proposer gains the configured proposer award."},
		{ID: 206, Text: "Each player who votes in favor of an adopted rule change gains the configured supporter award."},
		{ID: 207, Text: "The winner is the first player to achieve the configured number of points."},
		{ID: 208, Text: "At no time may there be more than one proposal pending before the voters."},
		{ID: 209, Text: "Players may not conspire or consult on the making of future rule changes unless they are teammates or partners."},
		{ID: 210, Text: "No rule may be repealed and re-enacted in the same form within the same turn."},
		{ID: 211, Text: "If two or more mutable rules conflict with one another, then the rule with the lowest ordinal number takes precedence."},
		{ID: 212, Text: "If players disagree about the legality of a move or the interpretation or application of a rule, the resolution procedure in effect shall decide."},
		{ID: 213, Text: "If the rules are changed so that further play is impossible, the game ends and no player wins."},
	}

	rules := make([]models.Rule, 0, len(immutable)+len(mutable))
	rules = append(rules, immutable...)
	for i := range mutable {
		mutable[i].Mutable = true
	}
	rules = append(rules, mutable...)
	return rules
}
