package format

import "testing"

func TestValidateNFTForm(test *testing.T) {
	test.Parallel()
	valid := NFTForm{Name: "Nebula Nexus", Description: "A swirling nebula", RoyaltyPercentage: "10", Price: "25"}
	cases := []struct {
		name          string
		mutate        func(NFTForm) NFTForm
		expectedField string
		expectedError string
	}{
		{name: "valid", mutate: func(form NFTForm) NFTForm { return form }},
		{name: "zero royalty accepted", mutate: func(form NFTForm) NFTForm { form.RoyaltyPercentage = "0"; return form }},
		{name: "full royalty accepted", mutate: func(form NFTForm) NFTForm { form.RoyaltyPercentage = "100"; return form }},
		{name: "blank name", mutate: func(form NFTForm) NFTForm { form.Name = "   "; return form }, expectedField: FieldName, expectedError: "Name is required"},
		{name: "blank description", mutate: func(form NFTForm) NFTForm { form.Description = ""; return form }, expectedField: FieldDescription, expectedError: "Description is required"},
		{name: "missing royalty", mutate: func(form NFTForm) NFTForm { form.RoyaltyPercentage = ""; return form }, expectedField: FieldRoyaltyPercentage, expectedError: "Royalty percentage is required"},
		{name: "royalty not numeric", mutate: func(form NFTForm) NFTForm { form.RoyaltyPercentage = "ten"; return form }, expectedField: FieldRoyaltyPercentage, expectedError: "Royalty percentage must be a number"},
		{name: "royalty above range", mutate: func(form NFTForm) NFTForm { form.RoyaltyPercentage = "101"; return form }, expectedField: FieldRoyaltyPercentage, expectedError: "Royalty percentage must be between 0 and 100"},
		{name: "royalty below range", mutate: func(form NFTForm) NFTForm { form.RoyaltyPercentage = "-1"; return form }, expectedField: FieldRoyaltyPercentage, expectedError: "Royalty percentage must be between 0 and 100"},
		{name: "missing price", mutate: func(form NFTForm) NFTForm { form.Price = ""; return form }, expectedField: FieldPrice, expectedError: "Price is required"},
		{name: "price not numeric", mutate: func(form NFTForm) NFTForm { form.Price = "free"; return form }, expectedField: FieldPrice, expectedError: "Price must be a number"},
		{name: "zero price", mutate: func(form NFTForm) NFTForm { form.Price = "0"; return form }, expectedField: FieldPrice, expectedError: "Price must be greater than 0"},
	}
	for _, tc := range cases {
		tc := tc
		test.Run(tc.name, func(test *testing.T) {
			test.Parallel()
			result := ValidateNFTForm(tc.mutate(valid))
			if tc.expectedField == "" {
				if !result.Valid || len(result.Errors) != 0 {
					test.Fatalf("expected valid form, got %+v", result)
				}
				return
			}
			if result.Valid {
				test.Fatalf("expected invalid form")
			}
			if result.Errors[tc.expectedField] != tc.expectedError {
				test.Fatalf("expected %q for %s, got %+v", tc.expectedError, tc.expectedField, result.Errors)
			}
		})
	}
}
