package rules

import "github.com/ashureev/boothsim/internal/domain"

// Default returns the built-in booth rule set. Each call returns a fresh value.
func Default() *Rules {
	return &Rules{
		BannedKeywords: []string{
			"synergy", "world class", "best in class", "revolutionary", "game changer",
			"guarantee", "no brainer", "silver bullet", "cutting edge", "disrupt",
		},
		Phases:       defaultPhases(),
		Guardrails:   defaultGuardrails(),
		Intents:      defaultIntents(),
		Cues:         defaultCues(),
		Bands:        defaultBands(),
		Scoring:      defaultScoring(),
		TurnLimits:   map[string]int{"easy": 14, "medium": 12, "hard": 10},
		Tooling:      defaultTooling(),
		Responses:    defaultResponses(),
		OpeningLines: []string{
			"Hey there. I've got a few minutes before the next talk.",
			"Hi. Saw the crowd and figured I'd stop by.",
			"Hello. Grabbing some swag between sessions.",
		},
		CannedReplies: map[domain.Phase]string{
			domain.PhaseOpening:         "Hi. I'm just walking the floor between sessions.",
			domain.PhaseExploration:     "We have a mix of tools, honestly. It depends on the team.",
			domain.PhasePainDiscovery:   "It's been a rough few months on call, to be honest.",
			domain.PhaseSolutionFraming: "Maybe. I'd need to see how that fits what we run today.",
			domain.PhaseOutcome:         "Thanks, this was helpful.",
		},
		Personas: defaultPersonas(),
	}
}

func defaultPhases() []PhaseRule {
	return []PhaseRule{
		{
			Phase:       domain.PhaseOpening,
			Description: "Greet the attendee and earn a few minutes of attention.",
			Behaviors:   []string{"ask an open-ended question", "no pitching"},
			Guidance:    "Open with a curious, open-ended question about them, not about the product.",
		},
		{
			Phase:       domain.PhaseExploration,
			Description: "Learn their role, team and current tooling.",
			Behaviors:   []string{"open-ended questions", "ask before assuming"},
			Guidance:    "Keep exploring with open questions. Ask what they use before naming anything.",
		},
		{
			Phase:       domain.PhasePainDiscovery,
			Description: "Surface concrete pain and its impact.",
			Behaviors:   []string{"acknowledge the pain", "connect it to customer impact"},
			Guidance:    "Acknowledge what they said before moving on. Empathy unlocks the next step.",
		},
		{
			Phase:       domain.PhaseSolutionFraming,
			Description: "Tie their pain to a relevant capability and propose a next step.",
			Behaviors:   []string{"frame value in their words", "offer a concrete next step"},
			Guidance:    "Offer one concrete next step: a demo, docs, or a follow-up. Let them choose.",
		},
		{
			Phase:       domain.PhaseOutcome,
			Description: "Confirm the agreed next step and close respectfully.",
			Behaviors:   []string{"confirm", "thank them"},
			Guidance:    "Confirm the next step and let them get back to the conference.",
		},
	}
}

func defaultGuardrails() GuardrailRules {
	return GuardrailRules{
		CompetitorPhrases: []string{
			"better than datadog", "better than new relic", "better than splunk",
			"unlike datadog", "unlike new relic", "unlike splunk", "cheaper than",
			"we beat", "replace datadog", "replace your", "switch from", "rip out",
		},
		PitchPhrases: []string{
			"our pricing", "pricing", "discount", "free trial", "demo", "our product",
			"special offer", "per host", "sign up today",
		},
		AssertionPhrases: []string{
			"since you're using", "since you are using", "since you use", "with your",
			"because you're using", "because you use", "as you already use", "given your",
			"now that you use", "now that you're on",
		},
		AskingPhrases: []string{
			"are you using", "do you use", "are you familiar with", "have you used",
			"do you have", "have you tried", "are you on", "have you heard of",
			"do you run", "are you running",
		},
		Technologies: []string{
			"opentelemetry", "open telemetry", "otel", "kubernetes", "k8s", "prometheus",
			"grafana", "jaeger", "zipkin", "datadog", "new relic", "splunk", "grpc", "kafka",
			"istio", "service mesh", "distributed tracing", "tracing", "elasticsearch",
			"cloudwatch", "pagerduty", "sentry",
		},
		InterrogativeStarters: []string{
			"what", "how", "why", "who", "where", "when", "which", "do", "does", "did",
			"are", "is", "can", "could", "would", "will", "have", "has", "should",
		},
		OpenEndedMarkers: []string{"what", "how", "why", "in what way"},
		OpenEndedPrompts: []string{
			"tell me", "walk me through", "describe", "help me understand", "curious about",
		},
		ClosedStarters: []string{
			"do you", "does", "did you", "are you", "is it", "is that", "have you", "has",
			"can you", "could you", "would you", "will you", "should",
		},
		EmpathyPhrases: []string{
			"that sounds", "sounds frustrating", "sounds painful", "sounds tough",
			"i understand", "i can imagine", "that must be", "i hear you", "makes sense",
			"that's rough", "that's tough", "sorry to hear", "no fun", "i get it",
			"appreciate you sharing",
		},
		RestrictedTopics: []string{"politics", "religion", "your salary", "layoffs", "lawsuit"},
	}
}

func defaultIntents() IntentRules {
	return IntentRules{
		UsableConfidence:     0.7,
		ExhaustionConfidence: 0.8,
		TransitionFactor:     0.9,
		UnknownConfidence:    0.3,
		FollowUpConfidence:   0.72,
		DenialConfidence:     0.95,
		DenialPhrases: []string{
			"don't have tracing", "dont have tracing", "no tracing", "not using tracing",
			"without tracing", "don't have distributed tracing", "no distributed tracing",
			"haven't set up tracing", "don't do tracing", "no traces",
		},
		FollowUpPhrases: []string{
			"tell me more", "go on", "how so", "say more", "what do you mean", "interesting",
		},
		TransitionSources: []domain.Intent{
			domain.IntentIncidentPain,
			domain.IntentCorrelationPain,
			domain.IntentAlertFatigue,
			domain.IntentShareTooling,
		},
		Rules: []IntentRule{
			{Intent: domain.IntentQualifiedLead, Confidence: 0.9, Phrases: []string{
				"follow up", "scan your badge", "scan badge", "have someone reach out",
				"connect you with", "set up a call", "schedule a call", "loop in", "reach out to you",
			}},
			{Intent: domain.IntentDeferredInterest, Confidence: 0.85, Phrases: []string{
				"not a priority", "timing isn't right", "later this year", "next quarter",
				"keep in touch", "circle back", "down the road",
			}},
			{Intent: domain.IntentSelfService, Confidence: 0.85, Phrases: []string{
				"docs", "documentation", "free trial", "trial", "try it yourself", "sign up",
				"sandbox", "free tier", "self serve", "get started",
			}},
			{Intent: domain.IntentDemoInterest, Confidence: 0.85, Phrases: []string{
				"demo", "show you", "see it in action", "walk you through the product", "quick look",
			}},
			{Intent: domain.IntentAskPricing, Confidence: 0.85, Phrases: []string{
				"price", "pricing", "cost", "how much", "license", "licensing",
			}},
			{Intent: domain.IntentAskDifferentiation, Confidence: 0.85, Phrases: []string{
				"datadog", "new relic", "splunk", "dynatrace", "honeycomb", "compared to",
				"different from", "versus", "competitor", "competitors",
			}},
			{Intent: domain.IntentAskOpenTelemetry, Confidence: 0.85, Phrases: []string{
				"opentelemetry", "open telemetry", "otel", "instrumentation standard",
				"vendor neutral instrumentation",
			}},
			{Intent: domain.IntentAskRolloutEffort, Confidence: 0.8, Phrases: []string{
				"rollout", "roll out", "implementation", "set up", "setup", "onboard",
				"how long would", "migration", "migrate", "integrate",
			}},
			{Intent: domain.IntentIncidentPain, Confidence: 0.85, Phrases: []string{
				"incident", "incidents", "outage", "outages", "on call", "oncall", "pager",
				"mttr", "downtime", "firefight", "postmortem",
			}},
			{Intent: domain.IntentCorrelationPain, Confidence: 0.85, Phrases: []string{
				"correlate", "correlation", "across services", "microservices", "root cause",
				"trace a request", "distributed", "dependencies",
			}},
			{Intent: domain.IntentAlertFatigue, Confidence: 0.85, Phrases: []string{
				"alert", "alerts", "alerting", "noise", "noisy", "paged", "false positive",
				"false positives", "fatigue",
			}},
			{Intent: domain.IntentShareTooling, Confidence: 0.8, Phrases: []string{
				"what are you using", "what do you use", "current stack", "your stack", "tools",
				"tooling", "monitor", "monitoring", "observability", "how do you track",
				"dashboards", "logs", "metrics",
			}},
			{Intent: domain.IntentAskWhatProductIs, Confidence: 0.75, Phrases: []string{
				"what brings you", "heard of us", "what we do", "our booth", "welcome", "hi",
				"hello", "hey", "how's the conference", "enjoying the conference",
			}},
		},
	}
}

func defaultCues() CueRules {
	return CueRules{
		DemoRequest: []string{
			"demo", "see it", "show me", "walk me through", "see how it works", "in action",
		},
		Acceptance: []string{
			"yes", "yeah", "sure", "sounds good", "let's do it", "let's do that", "i'd like that",
			"i would like that", "works for me", "happy to", "go ahead", "absolutely",
			"definitely", "please do", "ok", "okay",
		},
		SelfService: []string{
			"send me the docs", "check out the docs", "read the docs", "documentation",
			"free trial", "try it myself", "try it on my own", "sign up", "sandbox",
			"poke around", "on my own",
		},
		Deferred: []string{
			"not right now", "next quarter", "maybe later", "circle back", "keep in touch",
			"not a priority", "down the road", "after our migration", "later this year",
			"bad timing", "timing isn't right",
		},
		QualifiedLead: []string{
			"scan my badge", "scan badge", "have sales follow up", "sales follow up",
			"have someone reach out", "set up a call", "follow up with me",
			"loop in my manager", "send someone",
		},
		NearTerm: []string{
			"this quarter", "this month", "next few weeks", "soon", "asap", "right away",
			"actively looking", "evaluating now", "budget approved", "before renewal", "urgent",
		},
		Disengagement: []string{
			"i should go", "i need to run", "gotta go", "got to go", "not interested",
			"i'll pass", "thanks anyway", "need to catch a session", "heading to a talk",
			"no thanks",
		},
		Commitment: []string{
			"scan my badge", "set up a call", "book a demo", "let's see the demo",
			"i'll try", "i will try", "sign up", "send me", "follow up", "reach out",
			"next step", "next steps", "calendar invite", "keep in touch", "circle back",
			"i'll check out",
		},
		CustomerImpact: []string{
			"customers", "customer", "users", "end users", "revenue", "sla", "slo", "churn",
			"customer experience", "impact",
		},
		Effort: []string{
			"effort", "complex", "complicated", "hard to", "time consuming", "rollout",
			"roll out", "migration", "how long", "resources", "engineering time",
		},
		TeamEvaluation: []string{
			"my team", "our team", "the team", "my manager", "my boss", "evaluate",
			"evaluation", "decision", "stakeholders", "proof of concept", "poc",
		},
	}
}

func defaultBands() []OutcomeBand {
	return []OutcomeBand{
		{
			Key:   "engineering_manager",
			Match: []string{"manager", "director", "head of", "vp", "lead"},
			Weights: map[domain.Outcome]float64{
				domain.OutcomeDemo: 0.25, domain.OutcomeSelfService: 0.05,
				domain.OutcomeQualifiedLead: 0.40, domain.OutcomeDeferred: 0.20,
				domain.OutcomePoliteExit: 0.10,
			},
			Tolerance: 0.1,
		},
		{
			Key:   "sre",
			Match: []string{"sre", "site reliability", "reliability", "on call"},
			Weights: map[domain.Outcome]float64{
				domain.OutcomeDemo: 0.30, domain.OutcomeSelfService: 0.15,
				domain.OutcomeQualifiedLead: 0.25, domain.OutcomeDeferred: 0.15,
				domain.OutcomePoliteExit: 0.15,
			},
			Tolerance: 0.08,
		},
		{
			Key:   "platform",
			Match: []string{"platform", "devops", "infrastructure", "cloud"},
			Weights: map[domain.Outcome]float64{
				domain.OutcomeDemo: 0.30, domain.OutcomeSelfService: 0.25,
				domain.OutcomeQualifiedLead: 0.20, domain.OutcomeDeferred: 0.15,
				domain.OutcomePoliteExit: 0.10,
			},
			Tolerance: 0.08,
		},
		{
			Key:   "student",
			Match: []string{"student", "intern", "graduate"},
			Weights: map[domain.Outcome]float64{
				domain.OutcomeDemo: 0.05, domain.OutcomeSelfService: 0.35,
				domain.OutcomeQualifiedLead: 0.0, domain.OutcomeDeferred: 0.20,
				domain.OutcomePoliteExit: 0.40,
			},
			Tolerance: 0.05,
		},
		{
			Key:   "developer",
			Match: []string{"developer", "engineer", "backend", "frontend", "full stack"},
			Weights: map[domain.Outcome]float64{
				domain.OutcomeDemo: 0.20, domain.OutcomeSelfService: 0.40,
				domain.OutcomeQualifiedLead: 0.10, domain.OutcomeDeferred: 0.15,
				domain.OutcomePoliteExit: 0.15,
			},
			Tolerance: 0.1,
		},
	}
}

func defaultScoring() ScoringRules {
	return ScoringRules{
		MaxSubScore: 20,
		Listening: SubScoreRule{Base: 6, Increment: 3, Phrases: []string{
			"it sounds like", "so what i'm hearing", "if i understand", "you mentioned",
			"you said", "so you're saying", "to recap", "let me make sure",
		}},
		Discovery: SubScoreRule{Base: 4, Increment: 2, Phrases: []string{
			"tell me about", "walk me through", "how do you", "how does", "what does",
			"what is your", "what's your", "what happens when", "how often", "why is",
			"why do", "what are you",
		}},
		Empathy: SubScoreRule{Base: 4, Increment: 3, Phrases: []string{
			"that sounds", "i understand", "i can imagine", "that must be", "i hear you",
			"makes sense", "sorry to hear", "that's rough", "that's tough", "i get it",
		}},
		AssumptionAvoidance: SubScoreRule{Base: 10, Increment: 2, Phrases: []string{
			"are you using", "do you use", "are you familiar with", "have you used",
			"have you tried", "do you run", "are you running",
		}},
		AssumptionPenalty:   5,
		ViolationPenalty:    4,
		EarlyPitchPenalty:   3,
		CustomerImpactBonus: 5,
		CustomerImpactPhrases: []string{
			"your customers", "your users", "customer experience", "end users",
			"customer impact", "impact on customers", "revenue",
		},
		OutcomeBonuses: map[domain.Outcome]int{
			domain.OutcomeQualifiedLead: 15,
			domain.OutcomeDemo:          15,
			domain.OutcomeSelfService:   10,
			domain.OutcomeDeferred:      5,
		},
		InefficiencyPenalty: 10,
		GradeThresholds: []GradeThreshold{
			{Grade: "A", Min: 90},
			{Grade: "B", Min: 80},
			{Grade: "C", Min: 70},
			{Grade: "D", Min: 60},
			{Grade: "F", Min: 0},
		},
		GradeFloors: map[domain.Outcome]string{
			domain.OutcomeQualifiedLead: "B",
			domain.OutcomeDemo:          "B",
			domain.OutcomeSelfService:   "C",
			domain.OutcomeDeferred:      "D",
		},
	}
}

func defaultTooling() ToolingRules {
	return ToolingRules{
		Roles: []ToolingRule{
			{Match: []string{"sre", "site reliability", "on call"}, Tools: []string{"Prometheus", "Grafana", "PagerDuty"}},
			{Match: []string{"platform", "devops", "infrastructure"}, Tools: []string{"Kubernetes", "Prometheus", "Jaeger"}},
			{Match: []string{"manager", "director", "head of", "vp"}, Tools: []string{"Datadog", "PagerDuty"}},
			{Match: []string{"student", "intern"}, Tools: []string{"print statements", "the cloud console"}},
			{Match: []string{"developer", "backend", "frontend"}, Tools: []string{"Sentry", "CloudWatch"}},
		},
		Default: []string{"Prometheus", "Grafana"},
	}
}

func defaultResponses() map[domain.Intent][]string {
	return map[domain.Intent][]string{
		domain.IntentNoTracing: {
			"Right, we don't have distributed tracing at all. It's {tools} and a lot of guessing.",
			"Correct, no tracing yet. We lean on {tool} and whatever the logs say.",
			"We never got tracing off the ground. {tool} covers metrics and that's about it.",
		},
		domain.IntentAskWhatProductIs: {
			"Hi! I've seen your logo around. What is it you folks actually do?",
			"Hey. I'm not sure what this booth is about, honestly. What's the product?",
			"Hello. Quick version, what does your tool do?",
		},
		domain.IntentShareTooling: {
			"We're mostly on {tools} right now. It works until something weird happens.",
			"Today it's {tools}. Nobody loves it but everyone knows it.",
			"Mostly {tool}, plus {tool2} for the stuff {tool} can't see.",
		},
		domain.IntentAskDifferentiation: {
			"Everyone here says they're different. How are you not just another {tool}?",
			"We already pay for {tool}. What would you do that it doesn't?",
			"I've heard that pitch from three booths today. What's actually different?",
		},
		domain.IntentIncidentPain: {
			"Incidents are the worst part. Last outage took us four hours to even find the service.",
			"On call is rough. We spend most of an incident just figuring out where to look.",
			"Our postmortems keep saying the same thing: we found the cause way too late.",
		},
		domain.IntentCorrelationPain: {
			"Connecting a slow request across services is basically manual. We jump between {tools} tabs.",
			"Root cause across our microservices is guesswork. {tool} shows symptoms, not the chain.",
			"We can't follow a request end to end. Every team has its own view of the problem.",
		},
		domain.IntentAlertFatigue: {
			"The alert noise is unreal. Half the pages from {tool} aren't actionable.",
			"People are starting to ignore alerts. That scares me more than the outages.",
			"We get paged for things that fix themselves. It's burning the team out.",
		},
		domain.IntentAskOpenTelemetry: {
			"Do you support OpenTelemetry? I don't want to get locked into another agent.",
			"We've talked about OpenTelemetry. Does your thing work with it out of the box?",
			"Is this OpenTelemetry based, or is it a proprietary agent?",
		},
		domain.IntentAskRolloutEffort: {
			"How much work is it to roll out? We don't have a spare quarter for a migration.",
			"What does setup look like next to {tool}? We're a small team.",
			"Be honest, how long until it's actually useful in production?",
		},
		domain.IntentAskPricing: {
			"What does pricing look like? Per host pricing killed us last time.",
			"Ballpark, what would this cost a team our size?",
			"I'll need a number before I can take this to anyone. How is it priced?",
		},
		domain.IntentDemoInterest: {
			"Sure, I'd like to see a quick demo if you have one running.",
			"Yeah, show me. I want to see how it handles a messy trace.",
			"Okay, a demo sounds good. Show me an incident walkthrough.",
		},
		domain.IntentSelfService: {
			"Honestly I'd rather try it on my own. Send me the docs and I'll poke around.",
			"I'll check out the docs and try it myself over the weekend.",
			"If there's a free trial, I'd like to sign up and try it on my own first.",
		},
		domain.IntentQualifiedLead: {
			"Sure, scan my badge and have sales follow up. We need something this quarter.",
			"Sounds good. Have someone reach out, we're evaluating tools this quarter.",
			"Yes, set up a call. My manager wants options soon.",
		},
		domain.IntentDeferredInterest: {
			"Not right now, maybe next quarter once our migration settles. Keep in touch.",
			"It's interesting, but it's not a priority this quarter. Let's circle back later this year.",
			"Timing isn't great. Maybe later, after our migration.",
		},
		domain.IntentEffortConcern: {
			"My real worry is effort. We can't take on another complicated rollout.",
			"It sounds useful, but how much engineering time would this eat up?",
			"The pain is real, but so is the migration cost. That's what would stop us.",
		},
		domain.IntentUrgency: {
			"It's getting urgent. We need to fix this soon, probably this quarter.",
			"Leadership noticed the last outage. We're actively looking right now.",
			"We can't live with this much longer. Something has to change soon.",
		},
		domain.IntentNextSteps: {
			"Okay, so what would a next step look like with you?",
			"I think I've said enough about our mess. What would you suggest as a next step?",
			"Alright. What happens next if I'm interested?",
		},
	}
}

func defaultPersonas() []domain.Persona {
	return []domain.Persona{
		{
			Key: "skeptical-sre", Name: "Dana", Role: "Senior SRE",
			Modifiers: []string{"skeptical", "time-pressed"}, EmotionalPosture: "guarded",
			ToolingBias: "open source", Familiarity: "high", Difficulty: "hard",
		},
		{
			Key: "curious-developer", Name: "Sam", Role: "Backend Developer",
			Modifiers: []string{"curious"}, EmotionalPosture: "friendly",
			ToolingBias: "hosted services", Familiarity: "medium", Difficulty: "easy",
		},
		{
			Key: "platform-engineer", Name: "Priya", Role: "Platform Engineer",
			Modifiers: []string{"pragmatic"}, EmotionalPosture: "neutral",
			ToolingBias: "Kubernetes native", Familiarity: "high", Difficulty: "medium",
		},
		{
			Key: "busy-director", Name: "Morgan", Role: "Director of Engineering",
			Modifiers: []string{"budget-conscious", "busy"}, EmotionalPosture: "impatient",
			ToolingBias: "vendor consolidation", Familiarity: "low", Difficulty: "medium",
		},
		{
			Key: "student", Name: "Alex", Role: "Computer Science Student",
			Modifiers: []string{"eager"}, EmotionalPosture: "enthusiastic",
			ToolingBias: "free tier", Familiarity: "low", Difficulty: "easy",
		},
	}
}
