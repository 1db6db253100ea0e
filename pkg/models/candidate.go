package models

import "fmt"

// AlgorithmKind identifies a tree-ensemble classifier
type AlgorithmKind string

const (
	AlgorithmRandomForest         AlgorithmKind = "random_forest"
	AlgorithmExtraTrees           AlgorithmKind = "extra_trees"
	AlgorithmGradientBoosting     AlgorithmKind = "gradient_boosting"
	AlgorithmHistGradientBoosting AlgorithmKind = "hist_gradient_boosting"
)

// AllAlgorithms lists every algorithm in selection order
var AllAlgorithms = []AlgorithmKind{
	AlgorithmRandomForest,
	AlgorithmExtraTrees,
	AlgorithmGradientBoosting,
	AlgorithmHistGradientBoosting,
}

// Validate checks that the algorithm is known
func (a AlgorithmKind) Validate() error {
	for _, known := range AllAlgorithms {
		if a == known {
			return nil
		}
	}
	return NewConfigurationError("algorithm", string(a), "unknown algorithm")
}

// BalanceKind identifies a synthetic oversampling method
type BalanceKind string

const (
	BalanceSMOTEENN BalanceKind = "smoteenn"
	BalanceADASYN   BalanceKind = "adasyn"
	BalanceSMOTE    BalanceKind = "smote"
)

// AllBalanceMethods lists every rebalancing method in selection order
var AllBalanceMethods = []BalanceKind{
	BalanceSMOTEENN,
	BalanceADASYN,
	BalanceSMOTE,
}

// Validate checks that the balance method is known
func (b BalanceKind) Validate() error {
	for _, known := range AllBalanceMethods {
		if b == known {
			return nil
		}
	}
	return NewConfigurationError("balance", string(b), "unknown balance method")
}

// Candidate pairs an algorithm with a rebalancing method
type Candidate struct {
	Algorithm AlgorithmKind `json:"algorithm"`
	Balance   BalanceKind   `json:"balance"`
}

// DefaultCandidate is used when every candidate fails
var DefaultCandidate = Candidate{Algorithm: AlgorithmRandomForest, Balance: BalanceSMOTEENN}

func (c Candidate) String() string {
	return fmt.Sprintf("%s+%s", c.Algorithm, c.Balance)
}

// Validate checks both halves of the candidate
func (c Candidate) Validate() error {
	if err := c.Algorithm.Validate(); err != nil {
		return err
	}
	return c.Balance.Validate()
}

// CandidateResult is the outcome of evaluating one candidate on the test split
type CandidateResult struct {
	Candidate  Candidate `json:"candidate"`
	F1Weighted float64   `json:"f1_weighted"`
	Accuracy   float64   `json:"accuracy"`
	Error      string    `json:"error,omitempty"`
}

// Failed reports whether the candidate could not be fit or scored
func (r CandidateResult) Failed() bool {
	return r.Error != ""
}
