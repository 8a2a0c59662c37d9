package rules

// Default returns the production rule table. Each call returns fresh slices
// and maps, so callers may adjust the copy freely.
func Default() Rules {
	return Rules{
		Classifier: ClassifierRules{
			FullMaxPercent:       49,
			AbandonAssistMinutes: 30,
			PartialMinMinor:      3,
			PartialMinModerate:   2,
			PartialMinMajor:      1,
		},
		Compensation: CompensationRules{
			BasePayout: 45.00,
			FullTiers: []FullTier{
				{MinPercent: 0, MaxPercent: 0, LeadPay: 45.00, Bonus: 10.00},
				{MinPercent: 1, MaxPercent: 29, LeadPay: 36.00, Bonus: 8.00},
				{MinPercent: 30, MaxPercent: 49, LeadPay: 27.00, Bonus: 6.00},
				{MinPercent: 50, MaxPercent: 50, LeadPay: 22.50, Bonus: 5.00},
			},
			FullOverflow:     OverflowReject,
			PartialBonusRate: 0.18,
			PartialBonusMin:  5.00,
			PartialBonusMax:  12.00,
		},
		Patterns: PatternRules{
			LightAbuseAssistMinutes:  30,
			LightAbuseMinOccurrences: 3,
			ComplaintMinSeverity:     3,
			RepeatWindowDays:         7,
			RepeatMaxFullTakeovers:   1,
		},
		Bonus: BonusRules{
			Periods: []BonusPeriod{
				{Name: PeriodWeek, WindowDays: 7, MinJobs: 10},
				{Name: PeriodTwoWeeks, WindowDays: 14, MinJobs: 20},
			},
			Tiers: []BonusTier{
				{Level: 3, Amount: 50, MinRating: 4.85, WindowDays: 14, MinJobs: 20},
				{Level: 2, Amount: 35, MinRating: 4.8, WindowDays: 7, MinJobs: 10},
				{Level: 1, Amount: 25, MinRating: 4.7, WindowDays: 7, MinJobs: 10},
			},
		},
		Evaluation: EvaluationRules{
			LeadershipWeight: 0.6,
			PersonalWeight:   0.4,

			RatingWindowDays:        14,
			WeeklyWindowDays:        7,
			BubblerRatingWindowDays: 30,
			ComplaintWindowDays:     30,
			PersonalJobCount:        10,

			CheckInTarget:            10,
			CheckInShortfall:         3,
			LowBubblerRating:         3,
			LowBubblerRatingLimit:    2,
			FlaggedComplaintSeverity: 3,
			FlaggedComplaintLimit:    2,
			LeadershipRatingFloor:    4.4,
			PersonalRatingFloor:      4.3,
			DemotionStrikes:          3,

			ExcellentScore:    80,
			GoodScore:         70,
			SatisfactoryScore: 60,
			BubblerRatingGoal: 4.0,
			OnTimeGoal:        90,
			CompletionGoal:    95,

			Leadership: LeadershipWeights{
				Rating:           Component{Factor: 10, Cap: 30},
				TakeoversAvoided: Component{Factor: 2, Cap: 15},
				QualityUplift:    Component{Factor: 0.2, Cap: 15},
				CheckIns:         Component{Factor: 15, Cap: 15},
				BubblerRating:    Component{Factor: 5, Cap: 25},
			},
			Personal: PersonalWeights{
				Rating:           Component{Factor: 10, Cap: 40},
				OnTime:           Component{Factor: 0.3, Cap: 30},
				Completion:       Component{Factor: 0.3, Cap: 30},
				ComplaintPenalty: Component{Factor: 10, Cap: 20},
			},
		},
		Staffing: StaffingRules{
			SoloMaxMinutes:          180,
			LargeSoloMaxMinutes:     150,
			DualMaxMinutes:          360,
			LargeBedrooms:           4,
			LargeBathrooms:          3,
			TeamSize:                3,
			PetMultiplier:           1.10,
			LargePropertyMultiplier: 1.28,
			CrewMultiplier:          1.10,
			TaskRates: map[string]float64{
				"standard_clean":  45.00,
				"deep_clean":      75.00,
				"bathroom":        12.00,
				"kitchen":         15.00,
				"bedroom":         8.00,
				"baseboards":      10.00,
				"windows":         14.00,
				"oven":            20.00,
				"fridge":          18.00,
				"dishwasher":      12.00,
				"inside_cabinets": 16.00,
				"laundry_wash":    12.00,
				"laundry_fold":    8.00,
				"exterior_wash":   25.00,
				"interior_detail": 35.00,
				"engine_bay":      22.00,
				"wax":             20.00,
			},
			PetExemptTasks: []string{
				"oven", "fridge", "dishwasher", "inside_cabinets", "interior_detail", "engine_bay",
			},
			PropertyServices: []string{"home_cleaning", "deep_cleaning", "move_out"},
		},
	}
}
